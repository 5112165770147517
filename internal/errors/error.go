package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryConfig   Category = "config"
	CategoryScenario Category = "scenario"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a source file (scenario or config).
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ReactorError is a structured error with a registered code, an optional
// source location, and a fix suggestion.
type ReactorError struct {
	// Code is a unique error identifier (e.g., "R001").
	Code string

	// Category is the error type (runtime, config, ...).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the source position where the error occurred.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ReactorError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ReactorError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target carries the same error code.
// This lets callers compare against the sentinels built with New.
func (e *ReactorError) Is(target error) bool {
	t, ok := target.(*ReactorError)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

// WithLocation adds source location to the error.
func (e *ReactorError) WithLocation(file string, line, column int) *ReactorError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ReactorError) WithSuggestion(s string) *ReactorError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ReactorError) WithDetail(d string) *ReactorError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *ReactorError) WithDetailf(format string, args ...any) *ReactorError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *ReactorError) Wrap(err error) *ReactorError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a ReactorError from a registered error code.
func New(code string) *ReactorError {
	template, ok := registry[code]
	if !ok {
		return &ReactorError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ReactorError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new ReactorError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ReactorError {
	return &ReactorError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a ReactorError.
func FromError(err error, code string) *ReactorError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*ReactorError); ok {
		return re
	}
	return New(code).Wrap(err)
}
