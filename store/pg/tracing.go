package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/autogql/autogql/observability/tracing"
)

// queryTracer adapts the tracing facade to pgx's QueryTracer hooks so every
// statement the store issues becomes a span under the resolver that ran it.
type queryTracer struct {
	tracer tracing.Tracer
}

func newQueryTracer(tracer tracing.Tracer) pgx.QueryTracer {
	if tracer == nil {
		return nil
	}
	return &queryTracer{tracer: tracer}
}

type querySpanKey struct{}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := t.tracer.Start(ctx, "store.pg.query",
		tracing.String("db.statement", data.SQL),
		tracing.Int("db.args", len(data.Args)),
	)
	return context.WithValue(ctx, querySpanKey{}, span)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(tracing.Span)
	if !ok {
		return
	}
	span.End(data.Err)
}
