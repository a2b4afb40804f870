package analyze_test

import (
	"strings"
	"testing"

	"github.com/go-dataflow/go-dataflow"
	"github.com/go-dataflow/go-dataflow/analyze"
)

type rawSample struct{ dataflow.AnonymousElement }

type verdict struct {
	Guilty bool
}

func (verdict) ID() dataflow.TopicStateID { return 31 }

type judge struct {
	dataflow.Detector
	out *dataflow.Publisher[verdict]
}

func newJudge(g *dataflow.Graph) *judge {
	d := &judge{}
	d.Attach(g, d)
	dataflow.Subscribe[rawSample](&d.Detector, d)
	d.out = dataflow.SetupPublishing[verdict](&d.Detector)
	return d
}

func (d *judge) Evaluate(rawSample) { d.out.Publish(verdict{}) }

// echoLoop closes a feedback loop so the rendering shows a future edge.
type echoLoop struct {
	dataflow.Detector
	out *dataflow.FuturePublisher[rawSample]
}

func newEchoLoop(g *dataflow.Graph) *echoLoop {
	d := &echoLoop{}
	d.Attach(g, d)
	dataflow.Subscribe[verdict](&d.Detector, d)
	d.out = dataflow.SetupFuturePublishing[rawSample](&d.Detector)
	return d
}

func (d *echoLoop) Evaluate(verdict) {}

func TestWriteDot(t *testing.T) {
	g := dataflow.New()
	newJudge(g)
	newEchoLoop(g)

	// Sort the vertices so the rendering carries evaluation order.
	if err := g.Evaluate(); err != nil {
		t.Fatal("Evaluate()", err)
	}

	var b strings.Builder
	if err := analyze.NewAnalyzer(g).WriteDot(&b); err != nil {
		t.Fatal("WriteDot()", err)
	}
	dot := b.String()

	for _, want := range []string{
		"digraph GraphAnalyzer {",
		// The named topic renders double-ringed.
		"peripheries=2",
		// The feedback topic is fed exclusively across passes.
		`"Topic[rawSample]" [label="0:Topic[rawSample]",style=filled, shape=box, color=orange];`,
		// Immediate edges are solid, future edges dotted and unconstrained.
		`"Topic[rawSample]" -> "judge";`,
		`"echoLoop" -> "Topic[rawSample]" [style=dotted, color=red, constraint=false];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("WriteDot() output is missing %q\n%s", want, dot)
		}
	}
}

func TestVertexNames(t *testing.T) {
	g := dataflow.New()
	newJudge(g)
	if err := g.Evaluate(); err != nil {
		t.Fatal("Evaluate()", err)
	}

	names := analyze.NewAnalyzer(g).VertexNames()
	// Topological order: input topic, detector, output topic.
	want := []string{"Topic[rawSample]", "judge", "Topic[verdict]"}
	if len(names) != len(want) {
		t.Fatalf("VertexNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("VertexNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestHasPublicConflict(t *testing.T) {
	t.Run("SinglePublisher", func(t *testing.T) {
		g := dataflow.New()
		newJudge(g)
		if analyze.NewAnalyzer(g).HasPublicConflict() {
			t.Error("HasPublicConflict() = true for a single publisher")
		}
	})

	t.Run("TwoPublishersOfNamedTopic", func(t *testing.T) {
		g := dataflow.New()
		newJudge(g)
		newJudge(g)
		if !analyze.NewAnalyzer(g).HasPublicConflict() {
			t.Error("HasPublicConflict() = false for two publishers of a named topic")
		}
	})
}

func TestWrapOnCommonEndings(t *testing.T) {
	tests := []struct {
		In   string
		Want string
	}{
		{In: "OverheatingDetector", Want: "Overheating\nDetector"},
		{In: "OverheatingState", Want: "Overheating\nState"},
		{In: "Detector", Want: "Detector"},
		{In: "judge", Want: "judge"},
	}
	for _, tt := range tests {
		if got := analyze.WrapOnCommonEndings(tt.In); got != tt.Want {
			t.Errorf("WrapOnCommonEndings(%q) = %q, want %q", tt.In, got, tt.Want)
		}
	}
}
