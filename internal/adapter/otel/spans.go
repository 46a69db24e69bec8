package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "nusahire"

// StartResolveSpan starts a span around tenant resolution.
func StartResolveSpan(ctx context.Context, token string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.resolve",
		trace.WithAttributes(attribute.String("tenant.token", token)),
	)
}

// StartMintSpan starts a span around token construction.
func StartMintSpan(ctx context.Context, clientID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "token.mint",
		trace.WithAttributes(attribute.String("oauth.client_id", clientID)),
	)
}
