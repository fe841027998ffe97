package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRouteKeyAttributes(t *testing.T) {
	attrs := RouteKeyAttributes("/v1/products/:id/stores/:store_id/price", gin.Params{
		{Key: "id", Value: "101"},
		{Key: "store_id", Value: "7"},
	})
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(AttrProductID, "101"),
		attribute.String(AttrStoreID, "7"),
	}, attrs)

	attrs = RouteKeyAttributes("/v1/stores/:id/fallback", gin.Params{{Key: "id", Value: "7"}})
	assert.Equal(t, []attribute.KeyValue{attribute.String(AttrStoreID, "7")}, attrs)

	attrs = RouteKeyAttributes("/v1/candidates/:id/adopt", gin.Params{{Key: "id", Value: "55"}})
	assert.Equal(t, []attribute.KeyValue{attribute.String(AttrCandidateID, "55")}, attrs)

	assert.Empty(t, RouteKeyAttributes("/v1/observations", nil))
}

func TestGinMiddlewareTagsPriceKey(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/v1/products/:id/stores/:store_id/price", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/products/101/stores/7/price", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /v1/products/:id/stores/:store_id/price", spans[0].Name())

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "101", got[AttrProductID].AsString())
	assert.Equal(t, "7", got[AttrStoreID].AsString())
	assert.Equal(t, int64(500), got["http.status_code"].AsInt64())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}
