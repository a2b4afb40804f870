package neo4jcatalog

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/go-dataflow/go-dataflow/neo4jcatalog")
