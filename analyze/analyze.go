/*
Package analyze inspects the topology of dataflow graphs.

It renders a graph to GraphViz DOT for visual inspection, lists vertices in
evaluation order, and flags design smells the engine itself does not
prohibit, such as two detectors publishing to the same named topic.

The analyser is diagnostics tooling: names and rendering details are
informational and may change between releases.
*/
package analyze

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-dataflow/go-dataflow"
)

// An Analyzer renders and inspects one graph's topology. Run it after the
// graph is fully constructed; it reads the vertex list and edges only and
// never mutates the graph.
type Analyzer struct {
	graph *dataflow.Graph

	// labelWrapper re-flows a vertex name into a multi-line DOT label.
	labelWrapper func(string) string
}

// NewAnalyzer returns an Analyzer over the given graph.
func NewAnalyzer(g *dataflow.Graph) *Analyzer {
	return &Analyzer{graph: g, labelWrapper: WrapOnCommonEndings}
}

// SetLabelWordWrapper replaces the label re-flow function used for DOT
// labels. The default is WrapOnCommonEndings.
func (a *Analyzer) SetLabelWordWrapper(wrap func(string) string) {
	a.labelWrapper = wrap
}

// GenerateDotFile renders the graph to a DOT file at the given path.
func (a *Analyzer) GenerateDotFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := a.WriteDot(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	return nil
}

// WriteDot renders the graph as a GraphViz DOT digraph.
//
// Topics render as boxes coloured by their role (orange for timer-fed,
// lightblue for graph inputs, limegreen for graph outputs, red for internal
// topics), with a double ring around named topics; detectors render as
// blue ellipses. Immediate edges are solid; future edges are dotted,
// red, and unconstrained so they do not distort the left-to-right ranking.
func (a *Analyzer) WriteDot(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph GraphAnalyzer {\n")
	b.WriteString("\trankdir = \"LR\";\n")
	b.WriteString("\tnode[fontname=Helvetica];\n")

	for i, v := range a.graph.Vertices() {
		label := fmt.Sprintf("%d:%s", i, a.labelWrapper(v.Name()))

		if topic, ok := v.(interface{ StateID() dataflow.TopicStateID }); ok {
			var exposure string
			if topic.StateID() != dataflow.AnonymousTopicState {
				exposure = "peripheries=2, "
			}
			fmt.Fprintf(&b, "\t%q [label=%q,style=filled, shape=box, %scolor=%s];\n", v.Name(), label, exposure, topicColour(v))
		} else {
			fmt.Fprintf(&b, "\t%q [label=%q, color=blue];\n", v.Name(), label)
		}

		for _, out := range v.OutEdges() {
			fmt.Fprintf(&b, "\t\t%q -> %q;\n", v.Name(), out.Name())
		}
		for _, out := range v.FutureOutEdges() {
			fmt.Fprintf(&b, "\t\t%q -> %q [style=dotted, color=red, constraint=false];\n", v.Name(), out.Name())
		}
	}

	b.WriteString("}\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}

// topicColour classifies a topic vertex by its edges.
func topicColour(v dataflow.Vertex) string {
	switch {
	case len(v.FutureInEdges()) > 0 && len(v.InEdges()) == 0:
		// Fed exclusively across passes: a timer or feedback topic.
		return "orange"
	case len(v.OutEdges()) == 0:
		// No subscribers within the graph: an output topic.
		return "limegreen"
	case len(v.InEdges()) == 0:
		// No publishers within the pass: an input topic.
		return "lightblue"
	default:
		return "red"
	}
}

// VertexNames returns the names of the graph's vertices in list order
// (evaluation order, once the graph has been evaluated).
func (a *Analyzer) VertexNames() []string {
	vertices := a.graph.Vertices()
	names := make([]string, len(vertices))
	for i, v := range vertices {
		names[i] = v.Name()
	}
	return names
}

// HasPublicConflict reports whether any named topic has more than one
// publishing detector.
//
// The engine does not prohibit this: values from multiple publishers
// concatenate within a pass. But for a named topic - one exposed to the
// outside through snapshots or streaming - multiple publishers usually
// indicate two detectors accidentally sharing a public type, so surface it
// as a design warning rather than enforcing it at run time.
func (a *Analyzer) HasPublicConflict() bool {
	for _, v := range a.graph.Vertices() {
		topic, ok := v.(interface{ StateID() dataflow.TopicStateID })
		if !ok {
			continue
		}
		if len(v.InEdges()) > 1 && topic.StateID() != dataflow.AnonymousTopicState {
			return true
		}
	}
	return false
}

// WrapOnCommonEndings re-flows a vertex name by breaking the line before
// common type-name endings (State, Detector, Topic), keeping DOT labels
// narrow. Names without a common ending are returned unchanged.
func WrapOnCommonEndings(name string) string {
	for _, ending := range [...]string{"TopicState", "Detector", "State", "Topic"} {
		if trimmed, ok := strings.CutSuffix(name, ending); ok && trimmed != "" {
			// The newline renders as a DOT line break once the label is
			// escaped with %q.
			return trimmed + "\n" + ending
		}
	}
	return name
}
