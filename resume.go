package dataflow

// ResumeFromSnapshot carries an entire StateSnapshot to every resuming
// detector on startup.
//
// The resume protocol: at startup, before any external input, the
// application pushes a single ResumeFromSnapshot built from a primed
// snapshot merged with persisted values (see LoadSnapshot). Every stateful
// detector subscribes to it and, on receipt, initialises its state from the
// snapshot. Because the push goes through the regular input queue, at most
// one snapshot resume occurs per graph lifetime and it observes the same
// pass semantics as external inputs.
//
// Note this is an anonymous TopicState: were it named, snapshots would
// contain snapshots, growing indefinitely mirror-versus-mirror style.
type ResumeFromSnapshot struct {
	AnonymousElement
	Snapshot *StateSnapshot
}
