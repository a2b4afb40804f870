/*
Package neo4jcatalog exports the topology of dataflow graphs to a Neo4j
database.

A fleet of devices running dataflow graphs accumulates many graph
revisions; keeping their topologies in one queryable place answers
questions no single process can: which deployed graphs subscribe to a given
topic-state id, where feedback loops concentrate, how a topology evolved
between releases. The catalog stores one node per vertex and one
relationship per edge, keyed by graph name, so repeated exports of the same
graph are idempotent.

The catalog is inspection tooling; the evaluation engine never depends on
it.
*/
package neo4jcatalog

import (
	"context"
	"fmt"
	"reflect"

	"github.com/danielorbach/go-component"
	"github.com/go-dataflow/go-dataflow"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// A Catalog maintains the topology records of dataflow graphs on a Neo4j
// database. Each exported vertex becomes a node labelled Topic or Detector
// with its graph's name, its evaluation order and (for topics) its
// topic-state id; each edge becomes a FEEDS or FEEDS_FUTURE relationship.
type Catalog struct {
	driver   neo4j.DriverWithContext // Connection to the neo4j server/cluster.
	database string                  // Target database name that identifies the specific underlying neo4j graph.
}

// NewCatalog returns a Catalog recording into the given database.
func NewCatalog(driver neo4j.DriverWithContext, database string) *Catalog {
	return &Catalog{driver: driver, database: database}
}

// Export records the given graph's topology under its name. The export runs
// in a single write transaction: either the complete topology lands in the
// catalog or none of it does.
//
// Exports merge by (graph, vertex name), so re-exporting an unchanged graph
// is a no-op beyond refreshed export timestamps. Vertices removed between
// revisions linger until RemoveGraph; the engine does not support removing
// vertices from a live graph, so this only matters across process versions.
func (c *Catalog) Export(ctx context.Context, g *dataflow.Graph) (err error) {
	ctx, span := tracer.Start(ctx, "Export", trace.WithAttributes(
		attribute.String("neo4j.database", c.database),
		attribute.String("dataflow", g.Name()),
	))
	defer span.End()
	logger := component.Logger(ctx).With("neo4j.database", c.database, "dataflow", g.Name())

	s := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if cerr := s.Close(ctx); cerr != nil {
			logger.Error("Failed to close catalog's write session", "error", cerr)
		}
	}()

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		for order, v := range g.Vertices() {
			if err := exportVertex(ctx, tx, g.Name(), v, order); err != nil {
				return nil, fmt.Errorf("vertex %v: %w", v.Name(), err)
			}
		}
		for _, v := range g.Vertices() {
			for _, out := range v.OutEdges() {
				if err := exportEdge(ctx, tx, g.Name(), v, out, "FEEDS"); err != nil {
					return nil, fmt.Errorf("edge %v -> %v: %w", v.Name(), out.Name(), err)
				}
			}
			for _, out := range v.FutureOutEdges() {
				if err := exportEdge(ctx, tx, g.Name(), v, out, "FEEDS_FUTURE"); err != nil {
					return nil, fmt.Errorf("future edge %v -> %v: %w", v.Name(), out.Name(), err)
				}
			}
		}
		return nil, nil
	}
	if _, err := s.ExecuteWrite(ctx, work); err != nil {
		return fmt.Errorf("execute write: %w", err)
	}

	logger.Info("Graph topology exported successfully",
		"vertices", len(g.Vertices()),
	)
	return nil
}

// vertexLabel returns the node label for a vertex kind. Labels cannot be
// query parameters in Cypher, so they are interpolated; the closed set here
// keeps that safe.
func vertexLabel(v dataflow.Vertex) string {
	if v.Kind() == dataflow.KindTopic {
		return "Topic"
	}
	return "Detector"
}

func exportVertex(ctx context.Context, tx neo4j.ManagedTransaction, graphName string, v dataflow.Vertex, order int) error {
	props := map[string]any{
		"graph": graphName,
		"name":  v.Name(),
		"order": order,
	}
	if topic, ok := v.(interface{ StateID() dataflow.TopicStateID }); ok {
		props["topicStateId"] = int(topic.StateID())
	}

	query := `
		MERGE (v:` + vertexLabel(v) + ` {graph: $graph, name: $name})
		ON CREATE SET v._created_at = datetime()
		SET v += $props, v._last_exported = datetime()
	`
	_, err := tx.Run(ctx, query, map[string]any{
		"graph": graphName,
		"name":  v.Name(),
		"props": props,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// relationshipTypes is the closed set of relationship types exportEdge may
// interpolate into its query.
var relationshipTypes = map[string]bool{"FEEDS": true, "FEEDS_FUTURE": true}

func exportEdge(ctx context.Context, tx neo4j.ManagedTransaction, graphName string, from, to dataflow.Vertex, relationship string) error {
	if !relationshipTypes[relationship] {
		panic("neo4jcatalog: seek developer attention: unknown relationship type " + relationship)
	}
	query := `
		MATCH (s:` + vertexLabel(from) + ` {graph: $graph, name: $from})
		MATCH (t:` + vertexLabel(to) + ` {graph: $graph, name: $to})
		MERGE (s)-[e:` + relationship + `]->(t)
		SET e._last_exported = datetime()
	`
	_, err := tx.Run(ctx, query, map[string]any{
		"graph": graphName,
		"from":  from.Name(),
		"to":    to.Name(),
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// RemoveGraph deletes every catalog record of the named graph, nodes and
// relationships both. Removing a graph that was never exported has no
// effect.
func (c *Catalog) RemoveGraph(ctx context.Context, graphName string) (err error) {
	ctx, span := tracer.Start(ctx, "RemoveGraph", trace.WithAttributes(
		attribute.String("neo4j.database", c.database),
		attribute.String("dataflow", graphName),
	))
	defer span.End()

	s := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer func() {
		if cerr := s.Close(ctx); cerr != nil {
			component.Logger(ctx).Error("Failed to close catalog's write session", "error", cerr)
		}
	}()

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `MATCH (v {graph: $graph}) DETACH DELETE v`, map[string]any{"graph": graphName})
		return nil, err
	}
	if _, err := s.ExecuteWrite(ctx, work); err != nil {
		return fmt.Errorf("execute write: %w", err)
	}
	return nil
}

// A Topology summarises the catalog's records of one graph.
type Topology struct {
	Topics      int
	Detectors   int
	Edges       int
	FutureEdges int
}

// Topology reads back the catalog's summary of the named graph. Use it to
// verify an export or to compare revisions cheaply before fetching full
// topologies.
func (c *Catalog) Topology(ctx context.Context, graphName string) (topo Topology, err error) {
	ctx, span := tracer.Start(ctx, "Topology", trace.WithAttributes(
		attribute.String("neo4j.database", c.database),
		attribute.String("dataflow", graphName),
	))
	defer span.End()

	s := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer func() {
		if cerr := s.Close(ctx); cerr != nil {
			component.Logger(ctx).Error("Failed to close catalog's read session", "error", cerr)
		}
	}()

	query := `
		MATCH (v {graph: $graph})
		WITH
			count(CASE WHEN 'Topic' IN labels(v) THEN 1 END) AS topics,
			count(CASE WHEN 'Detector' IN labels(v) THEN 1 END) AS detectors
		OPTIONAL MATCH ({graph: $graph})-[e:FEEDS]->({graph: $graph})
		WITH topics, detectors, count(e) AS edges
		OPTIONAL MATCH ({graph: $graph})-[f:FEEDS_FUTURE]->({graph: $graph})
		RETURN topics, detectors, edges, count(f) AS futureEdges
	`
	record, err := neo4j.ExecuteRead(ctx, s, func(tx neo4j.ManagedTransaction) (*neo4j.Record, error) {
		result, err := tx.Run(ctx, query, map[string]any{"graph": graphName})
		if err != nil {
			return nil, fmt.Errorf("run: %w", err)
		}
		return result.Single(ctx)
	})
	if err != nil {
		return Topology{}, fmt.Errorf("execute read: %w", err)
	}

	for key, dst := range map[string]*int{
		"topics":      &topo.Topics,
		"detectors":   &topo.Detectors,
		"edges":       &topo.Edges,
		"futureEdges": &topo.FutureEdges,
	} {
		n, err := getRecordProperty[int64](record, key)
		if err != nil {
			return Topology{}, fmt.Errorf("get %v: %w", key, err)
		}
		*dst = int(n)
	}
	return topo, nil
}

// The recordProperty interface defines generic constraints for the record
// values supported by getRecordProperty. This is a subset of all types
// supported by the neo4j package; when a new type is necessary, developers
// can simply add it to the list here.
type recordProperty interface {
	int64 | string
}

func getRecordProperty[T recordProperty](record *neo4j.Record, key string) (value T, err error) {
	prop, exists := record.Get(key)
	if !exists {
		return value, fmt.Errorf("property %q not found", key)
	}
	v, ok := prop.(T)
	if !ok {
		return value, fmt.Errorf("property %q has unexpected type %v", key, reflect.TypeOf(prop))
	}
	return v, nil
}
