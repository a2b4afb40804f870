// Package dataflow provides a synchronous, data-flow evaluation engine for
// embedded and systems software; Application logic is expressed as a directed
// acyclic graph of typed Topics (data channels) and Detectors (pure compute
// nodes) - maintained by digesting external inputs one at a time in order to
// produce a consistent set of derived outputs.
//
// Specifically, external inputs enter a FIFO queue and, on each evaluation
// pass, the engine dispatches exactly one input into its Topic and then
// propagates derived values through the graph in a single topologically
// ordered sweep. After the sweep, the graph exposes an output list containing
// every value produced during the pass, in topological order.
//
// Feedback loops are expressed acyclically through future publications: a
// detector may enqueue a value for the next pass instead of publishing into
// the current one, so the loop becomes an edge across passes. The
// TimeoutPublisherService injects delayed and periodic inputs the same way,
// and the GraphStateStore folds successive output lists into immutable
// snapshots that stateful detectors can resume from.
package dataflow
