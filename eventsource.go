package dataflow

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

// EncodeTopicState serialises a topic state for transmission or storage.
//
// The value is encoded through the TopicState interface so that
// DecodeTopicState can reconstruct the concrete type; remember to register
// that type with gob.Register() on both sides.
func EncodeTopicState(s TopicState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTopicState reconstructs a topic state previously encoded with
// EncodeTopicState.
func DecodeTopicState(p []byte) (TopicState, error) {
	var s TopicState
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&s); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return s, nil
}

type streamProcessor struct {
	graphName string
	source    *pubsub.Subscription
	sink      *pubsub.Topic
	container *ProcessorContainer
}

// NewStreamProcessor returns a [component.Procedure] that drives a dataflow
// graph from a pubsub subscription: each received message is decoded (see
// DecodeTopicState) and pushed into the contained graph, all pending passes
// are evaluated, and the named outputs of every pass are published to the
// specified sink.
//
// It consumes gob-encoded TopicState messages and produces gob-encoded
// TopicState messages, each labelled with its topic-state id for key-based
// partitioning by brokers that support it.
//
// The sink may be nil, in which case outputs are only observable through
// the container's own output hook.
func NewStreamProcessor(graphName string, source *pubsub.Subscription, sink *pubsub.Topic, container *ProcessorContainer) component.Procedure {
	return streamProcessor{
		graphName: graphName,
		source:    source,
		sink:      sink,
		container: container,
	}
}

func (p streamProcessor) Exec(l *component.L) {
	logger := component.Logger(l.Context())
	for l.Continue() {
		msg, err := p.source.Receive(l.GraceContext())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}

			// Based on the pubsub Receive function documentation, if Receive
			// returns an error, it is either a non-retryable error from the
			// underlying driver or indicates that the provided context is
			// Done. In case of a non-retryable error, we should either
			// recreate the Subscription or exit. Since we currently lack the
			// mechanism to recreate the target Subscription, we opt to
			// trigger a process shutdown.
			panic("cannot receive messages from the pubsub service")
		}

		err = p.handleMessage(l.GraceContext(), logger, msg)
		if err != nil {
			// The graph consumes inputs strictly in order; proceeding to the
			// next message after a failed one would reorder the stream.
			// Therefore, if handleMessage fails for any reason, we initiate a
			// process shutdown. The service will then continuously attempt to
			// process the same message until it succeeds.
			logger.Error("Couldn't handle graph input message",
				slog.Any("error", err),
			)
			panic("cannot proceed to the next graph input message due to failure")
		}

		// Acknowledge the message only if the handling process is fully
		// successful, as the service maintains an at-least-once delivery
		// constraint.
		msg.Ack()
	}
}

// handleMessage handles one graph input message: it decodes the TopicState,
// pushes it into the graph, evaluates all pending passes and publishes the
// named outputs of each pass. It returns an error if it fails to publish
// even a single output.
func (p streamProcessor) handleMessage(ctx context.Context, logger *slog.Logger, msg *pubsub.Message) (err error) {
	ctx, span := tracer.Start(ctx, "streamProcessor.handleMessage", trace.WithAttributes(
		attribute.String("msg.id", msg.LoggableID),
		attribute.String(dataflowGraphName, p.graphName),
	))
	defer span.End()

	logger.Debug("New graph input message received, starting message handling...")
	state, err := DecodeTopicState(msg.Body)
	if err != nil {
		err := fmt.Errorf("decode topic state: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	logger = logger.With(slog.String("topic-state", StateName(state)))
	if err := p.container.Graph().PushState(state); err != nil {
		err := fmt.Errorf("push: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	logger.Debug("Evaluating pending passes...")
	g := p.container.Graph()
	for g.HasDataPending() {
		if err := g.Evaluate(); err != nil {
			err := fmt.Errorf("evaluate: %w", err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		if p.container.output != nil {
			p.container.output(g.OutputList())
		}
		if err := p.notifyOutputs(ctx, logger, g.OutputList()); err != nil {
			return fmt.Errorf("send outputs: %w", err)
		}
	}
	logger.Debug("Graph input message handled successfully")

	return nil
}

// notifyOutputs publishes every named output of a single pass to the sink.
// Anonymous outputs exist purely for intra-graph signalling and are skipped.
func (p streamProcessor) notifyOutputs(ctx context.Context, logger *slog.Logger, outputs []TopicState) error {
	if p.sink == nil {
		return nil
	}

	grp, ctx := errgroup.WithContext(ctx)
	for _, out := range outputs {
		if out.ID() == AnonymousTopicState {
			continue
		}
		grp.Go(func() error {
			return p.notifyOutput(ctx, logger, out)
		})
	}

	// Ensures that any goroutines started by the error group are allowed to
	// finish and that their errors are handled before the function can
	// return, thus maintaining robust error tracking.
	return grp.Wait()
}

func (p streamProcessor) notifyOutput(ctx context.Context, logger *slog.Logger, out TopicState) error {
	ctx, span := tracer.Start(ctx, "streamProcessor.notifyOutput", trace.WithAttributes(
		attribute.Int("topicState.id", int(out.ID())),
	))
	defer span.End()

	body, err := EncodeTopicState(out)
	if err != nil {
		err := fmt.Errorf("encode topic state: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// The topic-state id is included as metadata on the message to enable
	// key-based partitioning by brokers that support it (e.g. Kafka). With
	// per-key ordering, a consumer of a specific output observes its
	// versions in publication order even when multiple consumers share the
	// sink.
	msg := &pubsub.Message{Body: body, Metadata: map[string]string{"topicStateID": strconv.Itoa(int(out.ID()))}}
	if err := p.sink.Send(ctx, msg); err != nil {
		err := fmt.Errorf("send: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.Debug("Output published successfully", slog.Int("topic-state-id", int(out.ID())))

	return nil
}
