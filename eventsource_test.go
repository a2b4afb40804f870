package dataflow

import (
	"context"
	"encoding/gob"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/mempubsub"
)

// The streaming tests use a named input/output pair; both cross the pubsub
// boundary and must be registered with gob.
type streamIn struct {
	Value int
}

func (streamIn) ID() TopicStateID { return 21 }

type streamOut struct {
	Value int
}

func (streamOut) ID() TopicStateID { return 22 }

func init() {
	gob.Register(streamIn{})
	gob.Register(streamOut{})
}

type streamEcho struct {
	Detector
	out *Publisher[streamOut]
}

func newStreamEcho(g *Graph) *streamEcho {
	d := &streamEcho{}
	d.Attach(g, d)
	Subscribe[streamIn](&d.Detector, d)
	d.out = SetupPublishing[streamOut](&d.Detector)
	return d
}

func (d *streamEcho) Evaluate(in streamIn) {
	d.out.Publish(streamOut{Value: in.Value})
}

func TestTopicStateEncoding(t *testing.T) {
	body, err := EncodeTopicState(streamIn{Value: 42})
	if err != nil {
		t.Fatal("EncodeTopicState()", err)
	}
	decoded, err := DecodeTopicState(body)
	if err != nil {
		t.Fatal("DecodeTopicState()", err)
	}
	if diff := cmp.Diff(TopicState(streamIn{Value: 42}), decoded); diff != "" {
		t.Error("Round-tripped state differs (-want +got):", diff)
	}
}

func TestStreamProcessorHandleMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g := New(WithName("stream-test"))
	newStreamEcho(g)
	container := NewProcessorContainer(g, nil)

	sink := mempubsub.NewTopic()
	defer sink.Shutdown(ctx)
	outputs := mempubsub.NewSubscription(sink, time.Minute)
	defer outputs.Shutdown(ctx)

	p := streamProcessor{
		graphName: g.Name(),
		sink:      sink,
		container: container,
	}

	body, err := EncodeTopicState(streamIn{Value: 5})
	if err != nil {
		t.Fatal("EncodeTopicState()", err)
	}
	if err := p.handleMessage(ctx, slog.Default(), &pubsub.Message{Body: body}); err != nil {
		t.Fatal("handleMessage()", err)
	}

	// The pass produced two named outputs: the input value on its topic and
	// the echoed output. Delivery order is not specified (outputs of a pass
	// publish concurrently), so collect them by id.
	got := make(map[TopicStateID]TopicState)
	for range 2 {
		msg, err := outputs.Receive(ctx)
		if err != nil {
			t.Fatal("Receive()", err)
		}
		msg.Ack()

		state, err := DecodeTopicState(msg.Body)
		if err != nil {
			t.Fatal("DecodeTopicState()", err)
		}
		got[state.ID()] = state

		if want := strconv.Itoa(int(state.ID())); msg.Metadata["topicStateID"] != want {
			t.Errorf("Metadata[topicStateID] = %q, want %q", msg.Metadata["topicStateID"], want)
		}
	}

	want := map[TopicStateID]TopicState{
		21: streamIn{Value: 5},
		22: streamOut{Value: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Error("Published outputs differ (-want +got):", diff)
	}
}

func TestStreamProcessorRejectsGarbage(t *testing.T) {
	g := New()
	container := NewProcessorContainer(g, nil)
	p := streamProcessor{graphName: g.Name(), container: container}

	err := p.handleMessage(context.Background(), slog.Default(), &pubsub.Message{Body: []byte("not gob")})
	if err == nil {
		t.Fatal("handleMessage() accepted a malformed body")
	}
}
