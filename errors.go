package dataflow

import "errors"

// The error kinds surfaced by graph evaluation. Callers match them with
// errors.Is; the concrete error values carry additional context about the
// specific fault.
var (
	// ErrBadConfiguration reports a malformed graph: a cycle over immediate
	// edges, an edge whose target is not a vertex of the graph, an exceeded
	// bounded-build capacity, or a duplicate topic registration.
	ErrBadConfiguration = errors.New("dataflow: bad configuration")

	// ErrMissingBinding reports resolving a topic that was never registered
	// in a bounded-build graph, or pushing a runtime-typed value (PushState)
	// whose type has no topic in the graph.
	ErrMissingBinding = errors.New("dataflow: missing binding")

	// ErrContractViolation reports misuse of an API contract that a dynamic
	// build can surface as an error, such as publishing two named topic
	// values with the same id in the same pass. In bounded builds contract
	// violations are unrecoverable programming errors and panic instead.
	ErrContractViolation = errors.New("dataflow: contract violation")
)
