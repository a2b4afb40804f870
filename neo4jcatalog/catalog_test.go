package neo4jcatalog_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-dataflow/go-dataflow"
	"github.com/go-dataflow/go-dataflow/internal/dbtest"
	"github.com/go-dataflow/go-dataflow/neo4jcatalog"
)

type sample struct{ dataflow.AnonymousElement }

type alert struct {
	Tripped bool
}

func (alert) ID() dataflow.TopicStateID { return 41 }

type alertDetector struct {
	dataflow.Detector
	out *dataflow.Publisher[alert]
}

func newAlertDetector(g *dataflow.Graph) *alertDetector {
	d := &alertDetector{}
	d.Attach(g, d)
	dataflow.Subscribe[sample](&d.Detector, d)
	d.out = dataflow.SetupPublishing[alert](&d.Detector)
	return d
}

func (d *alertDetector) Evaluate(sample) { d.out.Publish(alert{Tripped: true}) }

type rearmDetector struct {
	dataflow.Detector
	out *dataflow.FuturePublisher[sample]
}

func newRearmDetector(g *dataflow.Graph) *rearmDetector {
	d := &rearmDetector{}
	d.Attach(g, d)
	dataflow.Subscribe[alert](&d.Detector, d)
	d.out = dataflow.SetupFuturePublishing[sample](&d.Detector)
	return d
}

func (d *rearmDetector) Evaluate(alert) {}

func TestCatalog(t *testing.T) {
	driver := dbtest.SetupNeo4j(t)
	ctx := context.Background()

	catalog := neo4jcatalog.NewCatalog(driver, "neo4j")

	g := dataflow.New(dataflow.WithName("catalog-test"))
	newAlertDetector(g)
	newRearmDetector(g)
	// Sort the graph so the export carries evaluation order.
	if err := g.Evaluate(); err != nil {
		t.Fatal("Evaluate()", err)
	}

	if err := catalog.Export(ctx, g); err != nil {
		t.Fatal("Export()", err)
	}

	want := neo4jcatalog.Topology{
		Topics:      2, // sample, alert
		Detectors:   2, // alertDetector, rearmDetector
		Edges:       3, // sample->alertDetector, alertDetector->alert, alert->rearmDetector
		FutureEdges: 1, // rearmDetector->sample
	}
	topo, err := catalog.Topology(ctx, g.Name())
	if err != nil {
		t.Fatal("Topology()", err)
	}
	if diff := cmp.Diff(want, topo); diff != "" {
		t.Fatal("Exported topology differs (-want +got):", diff)
	}

	// Re-exporting the same graph merges into the existing records.
	if err := catalog.Export(ctx, g); err != nil {
		t.Fatal("Export() again:", err)
	}
	topo, err = catalog.Topology(ctx, g.Name())
	if err != nil {
		t.Fatal("Topology() after re-export:", err)
	}
	if diff := cmp.Diff(want, topo); diff != "" {
		t.Error("Topology changed after re-export (-want +got):", diff)
	}

	// Removal clears every record of the graph.
	if err := catalog.RemoveGraph(ctx, g.Name()); err != nil {
		t.Fatal("RemoveGraph()", err)
	}
	topo, err = catalog.Topology(ctx, g.Name())
	if err != nil {
		t.Fatal("Topology() after removal:", err)
	}
	if diff := cmp.Diff(neo4jcatalog.Topology{}, topo); diff != "" {
		t.Error("Topology not empty after removal (-want +got):", diff)
	}
}
