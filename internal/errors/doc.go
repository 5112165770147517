// Package errors provides structured, coded errors for reactor.
//
// Every error carries a registered code (e.g. "R001") that maps to a
// category, a short message and an optional fix suggestion. Errors built
// from the same code compare equal under errors.Is, so packages can export
// sentinels:
//
//	var ErrUnknownKey = errors.New("R004")
//
//	err := errors.New("R004").WithDetailf("field %q", "Name")
//	stderrors.Is(err, ErrUnknownKey) // true
//
// # Error Categories
//
//   - runtime: misuse of the reactive engine (bad targets, bad writes)
//   - config: invalid reactor.yaml values
//   - scenario: scenario files that fail to parse, run or meet expectations
//   - cli: invalid command usage
//
// Format renders an error for terminals, with the scenario or config line
// that caused it when a Location is attached.
package errors
