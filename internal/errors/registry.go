package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (R001-R019)
	// ============================================

	"R001": {
		Category:   CategoryRuntime,
		Message:    "Target is not a compound value",
		Suggestion: "Pass a pointer to a struct, a map with string keys, or a pointer to a slice",
	},
	"R002": {
		Category:   CategoryRuntime,
		Message:    "Write to a read-only computed value",
		Suggestion: "Use NewWritableComputed with a Set function",
	},
	"R003": {
		Category:   CategoryRuntime,
		Message:    "Invalid watch source",
		Suggestion: "Watch a reactive *Object or a func() any",
	},
	"R004": {
		Category: CategoryRuntime,
		Message:  "Unknown key",
	},
	"R005": {
		Category: CategoryRuntime,
		Message:  "Value type not assignable to key",
	},
	"R006": {
		Category: CategoryRuntime,
		Message:  "Index out of range",
	},
	"R007": {
		Category: CategoryRuntime,
		Message:  "Operation not supported by this object kind",
	},

	// ============================================
	// Config Errors (R020-R039)
	// ============================================

	"R020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"R021": {
		Category:   CategoryConfig,
		Message:    "Configuration file unreadable",
		Suggestion: "Check that reactor.yaml is valid YAML",
	},

	// ============================================
	// Scenario Errors (R040-R059)
	// ============================================

	"R040": {
		Category: CategoryScenario,
		Message:  "Invalid scenario",
	},
	"R041": {
		Category: CategoryScenario,
		Message:  "Scenario step failed",
	},
	"R042": {
		Category: CategoryScenario,
		Message:  "Scenario expectation not met",
	},

	// ============================================
	// CLI Errors (R060-R079)
	// ============================================

	"R060": {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
