package tracing

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributes(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/v1/observations"),
		attribute.String("empty", "  "),
		attribute.String("long", strings.Repeat("x", 300)),
		attribute.Int("http.status_code", 200),
	)

	assert.Len(t, attrs, 3)
	assert.Equal(t, maxAttributeLength, len(attrs[1].Value.AsString()))
	assert.Equal(t, int64(200), attrs[2].Value.AsInt64())
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	base := errors.New("boom")
	wrapped := fmt.Errorf("append observation: %w", base)
	safe := SafeError(wrapped)
	assert.Equal(t, wrapped.Error(), safe.Error())
	assert.False(t, errors.Is(safe, base))
}
