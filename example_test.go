package dataflow_test

import (
	"fmt"

	"github.com/danielorbach/go-component"

	"github.com/go-dataflow/go-dataflow"
)

// First, we define the two topic states of our exemplar graph: a raw
// temperature sample entering the graph and the derived overheating verdict
// leaving it.

// TemperatureSample is an external input; it enters the graph via Push.
type TemperatureSample struct {
	// Always embed this type (or implement ID) to implement TopicState.
	dataflow.AnonymousElement
	Celsius int
}

// OverheatingState is the graph's output; one verdict per sample.
type OverheatingState struct {
	dataflow.AnonymousElement
	Overheating bool
}

// Next, a detector connecting the two. A detector embeds dataflow.Detector,
// subscribes in its constructor, and publishes from Evaluate.

// OverheatingDetector turns temperature samples into overheating verdicts.
type OverheatingDetector struct {
	dataflow.Detector
	out *dataflow.Publisher[OverheatingState]
}

func NewOverheatingDetector(g *dataflow.Graph) *OverheatingDetector {
	d := &OverheatingDetector{}
	d.Attach(g, d)
	dataflow.Subscribe[TemperatureSample](&d.Detector, d)
	d.out = dataflow.SetupPublishing[OverheatingState](&d.Detector)
	return d
}

func (d *OverheatingDetector) Evaluate(sample TemperatureSample) {
	d.out.Publish(OverheatingState{Overheating: sample.Celsius > 100})
}

// Finally, a drive loop: push samples, evaluate, inspect the output topic
// once per pass.
func Example() {
	g := dataflow.New()
	NewOverheatingDetector(g)

	verdicts := dataflow.ResolveTopic[OverheatingState](g)
	container := dataflow.NewProcessorContainer(g, func([]dataflow.TopicState) {
		if verdicts.HasNewValue() {
			fmt.Println("overheating =", verdicts.NewValue().Overheating)
		}
	})

	for _, celsius := range []int{70, 105, 90} {
		if err := dataflow.Process(container, TemperatureSample{Celsius: celsius}); err != nil {
			fmt.Println("process:", err)
			return
		}
	}

	// Output:
	// overheating = false
	// overheating = true
	// overheating = false
}

// ExampleNewStreamProcessor shows an example [component.Descriptor] for a
// streaming dataflow processor with an example bootstrap function.
func ExampleNewStreamProcessor() {
	samplesAspect := "thermal.samples"
	verdictsAspect := "thermal.verdicts"

	d := &component.Descriptor{
		Name: "thermal-processor",
		Doc:  "....",
		Bootstrap: func(l *component.L, target component.Linker, options any) error {
			logger := component.Logger(l.Context())

			logger.Debug("Opening interest subscription...")
			samples, err := target.LinkInterest(l.GraceContext(), samplesAspect)
			if err != nil {
				return fmt.Errorf("open interest %q: %w", samplesAspect, err)
			}
			l.CleanupBackground(samples.Shutdown)
			logger.Info("Interest subscription opened successfully")

			logger.Debug("Opening aspect topic...")
			verdicts, err := target.LinkAspect(l.GraceContext(), verdictsAspect)
			if err != nil {
				return fmt.Errorf("open aspect %q: %w", verdictsAspect, err)
			}
			l.CleanupContext(verdicts.Shutdown)
			logger.Info("Aspect topic opened successfully")

			g := dataflow.New(dataflow.WithName("thermal"))
			NewOverheatingDetector(g)
			container := dataflow.NewProcessorContainer(g, nil)

			l.Fork("streamer", dataflow.NewStreamProcessor("thermal", samples, verdicts, container))

			return nil
		},
		Aspects:   []string{verdictsAspect},
		Interests: []string{samplesAspect},
	}

	fmt.Print(d)
}
