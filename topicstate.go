package dataflow

import (
	"reflect"
	"strings"
)

// TopicStateID identifies a named topic-state type within the public
// number-space defined by the application. Named topic states are intended to
// cross the graph's boundary (snapshots, persistence, messaging); anonymous
// ones exist purely for intra-graph signalling.
type TopicStateID int

// AnonymousTopicState is the TopicStateID of types that do not take part in
// the application's public number-space. Anonymous topic states never
// participate in snapshots.
const AnonymousTopicState TopicStateID = -1

// TopicState is the capability required of every type carried by a Topic.
// Although the dataflow package could work with any plain data record, we
// guard against accidental use of types by requiring them to implement this
// interface.
//
// A TopicState should be a self-explanatory and self-contained data record; a
// subscriber shouldn't need anything else to act on it.
//
// DO NOT forget to register your type with gob.Register() before streaming or
// persisting it.
type TopicState interface {
	// ID returns a stable positive integer to make the type named, or
	// AnonymousTopicState otherwise.
	ID() TopicStateID
}

// AnonymousElement implements TopicState in order to embed into user-defined
// types that do not need a public identity.
//
// Although embedding a TopicState field is type-equivalent to embedding this
// type, an interface field takes up 2 words of memory, whereas a field of
// this type takes up 0 words of memory.
type AnonymousElement struct{}

// ID returns AnonymousTopicState.
func (AnonymousElement) ID() TopicStateID { return AnonymousTopicState }

// StateID returns the TopicStateID of the type T without requiring a
// populated instance. It relies on the convention that ID is a function of
// the type, not of the value - the id of a zero value must equal the id of
// any other value of T.
func StateID[T TopicState]() TopicStateID {
	var zero T
	return zero.ID()
}

// StateName returns a human-readable name for the dynamic type of the given
// topic state. It is a convenience for graph debugging and diagnostics only;
// do not rely on its exact format.
func StateName(s TopicState) string {
	return typeName(reflect.TypeOf(s))
}

// typeName renders a reflect.Type without its package path, keeping generic
// type arguments readable (e.g. "Lagged[Loop]" instead of the fully
// qualified instantiation).
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.String()
	// Trim package qualifiers both outside and inside type-argument brackets.
	var b strings.Builder
	start := 0
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '.':
			start = i + 1
		case '[', ']', ',', ' ':
			b.WriteString(name[start:i])
			b.WriteByte(name[i])
			start = i + 1
		}
	}
	b.WriteString(name[start:])
	return b.String()
}
