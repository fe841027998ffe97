package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

const maxAttributeLength = 256

// ExtractContext pulls upstream trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops empty string attributes and truncates long values.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Value.Type() == attribute.STRING {
			value := strings.TrimSpace(attr.Value.AsString())
			if value == "" {
				continue
			}
			if len(value) > maxAttributeLength {
				value = value[:maxAttributeLength]
			}
			attr = attribute.String(string(attr.Key), value)
		}
		out = append(out, attr)
	}
	return out
}

// SafeError strips the error chain down to its message so spans never carry
// wrapped driver values.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if len(msg) > maxAttributeLength {
		msg = msg[:maxAttributeLength]
	}
	return errors.New(msg)
}
