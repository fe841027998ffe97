package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/pricewatch/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	AttrProductID   = "pricewatch.product_id"
	AttrStoreID     = "pricewatch.store_id"
	AttrCandidateID = "pricewatch.candidate_id"
)

// idParamOwners maps the resource a route starts with to the attribute its
// ":id" parameter names.
var idParamOwners = map[string]string{
	"products":   AttrProductID,
	"stores":     AttrStoreID,
	"candidates": AttrCandidateID,
}

// GinMiddleware opens a server span per request and tags it with the
// product, store and candidate the route addresses.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("pricewatch/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		ctx = withRequestID(ctx, span)

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)
		span.SetAttributes(SafeAttributes(RouteKeyAttributes(route, c.Params)...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

// RouteKeyAttributes names the price key a matched route addresses, e.g.
// /v1/products/:id/stores/:store_id yields both product and store ids.
func RouteKeyAttributes(route string, params gin.Params) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id, ok := params.Get("id"); ok {
		if key, found := idParamOwners[routeResource(route)]; found {
			attrs = append(attrs, attribute.String(key, id))
		}
	}
	if storeID, ok := params.Get("store_id"); ok {
		attrs = append(attrs, attribute.String(AttrStoreID, storeID))
	}
	return attrs
}

func routeResource(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) > 1 && parts[0] == "v1" {
		return parts[1]
	}
	return parts[0]
}

func withRequestID(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))

	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
