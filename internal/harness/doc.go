// Package harness runs YAML scenarios against the reactive engine and
// records what happens as a deterministic trace.
//
// A scenario declares an initial state and a list of steps:
//
//	name: branch
//	description: Effects re-subscribe to the branch they took.
//	state:
//	  ok: true
//	  a: A
//	  b: B
//	steps:
//	  - effect: view
//	    branch: {if: ok, then: [a], else: [b]}
//	  - set: ok
//	    value: false
//	expect:
//	  runs: {view: 2}
//
// Each step appends a header line to the trace, and each effect run,
// computed evaluation, watch callback and cleanup appends an indented line
// when it happens. Golden files under testdata/golden pin these traces.
package harness
