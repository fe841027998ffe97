package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "accepted"),
		attribute.String("product_id", "456"),
		attribute.String("source_type", "mirror"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("outcome"), attrs[0].Key)
	assert.Equal(t, attribute.Key("source_type"), attrs[1].Key)
}

func TestSourceType(t *testing.T) {
	assert.Equal(t, "unknown", SourceType(""))
	assert.Equal(t, "physical", SourceType("physical"))
	assert.Equal(t, "mirror", SourceType("mirror:selver:online"))
	assert.Equal(t, "integration", SourceType("selver:online"))
	assert.Equal(t, "other", SourceType("manual"))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordObservation(context.Background(), "accepted", "physical")
	m.RecordStaleWrite(context.Background(), "physical")
	m.RecordAdoption(context.Background(), "adopted", "identifier")
	m.RecordAnomaly(context.Background(), "low_similarity")
	m.RecordIngestMessage(context.Background(), "observation", "ok")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "pricewatch"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordObservation(context.Background(), "stale", "selver:online")
}
