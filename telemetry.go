package dataflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-dataflow/go-dataflow")
var meter = otel.Meter("github.com/go-dataflow/go-dataflow")

// ---- graph.go ----

const (
	// dataflowGraphName is the attribute key used to associate each record
	// with the corresponding graph's name. This enables detailed analysis of
	// metrics, such as evaluationDuration and evaluationFailures, allowing
	// both collective examination across all graphs in a process and
	// individual analysis per graph.
	dataflowGraphName = "dataflow"
)

var (
	// evaluationDuration measures the duration of a single evaluation pass:
	// the input dispatch, the topologically ordered sweep, and the output
	// list composition.
	//
	// Each record is associated with the dataflowGraphName.
	evaluationDuration metric.Float64Histogram
	// evaluationFailures measures the number of failed evaluation passes.
	//
	// Each record is associated with the dataflowGraphName.
	evaluationFailures metric.Int64Counter
)

func init() {
	var err error
	evaluationDuration, err = meter.Float64Histogram(
		"graph.evaluation.duration",
		metric.WithDescription("The duration of a single evaluation pass, including input dispatch, the topological sweep and output list composition."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("dataflow: failed to init 'graph.evaluation.duration' instrument")
	}

	evaluationFailures, err = meter.Int64Counter(
		"graph.evaluation.failures",
		metric.WithDescription("The number of evaluation passes that have failed."),
	)
	if err != nil {
		panic("dataflow: failed to init 'graph.evaluation.failures' instrument")
	}
}

// measureEvaluation measures an evaluation pass using the measurements
// evaluationDuration and evaluationFailures. If the pass succeeded, we
// record its duration. If it failed, we increment the failure counter.
//
// Each record, whether for duration or failures, is labeled with the
// relevant graph's name. This labeling allows for collective analysis of all
// evaluation passes, as well as detailed individual analysis per graph.
//
// According to [metric] documentation, [metric.WithAttributeSet] should be
// used instead of [metric.WithAttributes] for performance optimization.
func measureEvaluation(ctx context.Context, graphName string, succeeded bool, d time.Duration) {
	// According to go.opentelemetry.io/otel/attribute package documentation,
	// attribute.Set should be used instead of attribute.KeyValue directly for
	// performance optimization.
	attrs := attribute.NewSet(attribute.String(dataflowGraphName, graphName))
	if succeeded {
		// We use floating-point division here for higher precision (instead
		// of the Millisecond method).
		duration := float64(d) / float64(time.Millisecond)
		evaluationDuration.Record(ctx, duration, metric.WithAttributeSet(attrs))
	} else {
		evaluationFailures.Add(ctx, 1, metric.WithAttributeSet(attrs))
	}
}
