package tracing

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// kind of work a span covers
type SpanType string

const (
	SpanTypeAgent     SpanType = "AGENT"
	SpanTypeRetriever SpanType = "RETRIEVER"
	SpanTypeParser    SpanType = "PARSER"
	SpanTypeChatModel SpanType = "CHAT_MODEL"
	SpanTypeFunction  SpanType = "FUNCTION"
	SpanTypeTool      SpanType = "TOOL"
	SpanTypeUnknown   SpanType = "UNKNOWN"
)

// span attribute keys understood by the tracking service
const (
	AttrSpanType = "mlflow.spanType"
	AttrInputs   = "mlflow.spanInputs"
	AttrOutputs  = "mlflow.spanOutputs"
)

// thin wrapper over an otel span with JSON inputs/outputs
type Span struct {
	span trace.Span
}

// starts a child of the span in ctx, or a new trace
func Start(ctx context.Context, name string, spanType SpanType) (context.Context, *Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, name,
		trace.WithAttributes(attribute.String(AttrSpanType, string(spanType))),
	)

	return ctx, &Span{span: span}
}

func (s *Span) SetInputs(v any) {
	s.setJSON(AttrInputs, v)
}

func (s *Span) SetOutputs(v any) {
	s.setJSON(AttrOutputs, v)
}

func (s *Span) SetAttributes(attrs map[string]any) {
	if !s.span.IsRecording() {
		return
	}

	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, toAttribute(k, v))
	}

	s.span.SetAttributes(kvs...)
}

// ends the span, recording err when non-nil
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}

func (s *Span) TraceID() string {
	return s.span.SpanContext().TraceID().String()
}

func (s *Span) setJSON(key string, v any) {
	if !s.span.IsRecording() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", fmt.Sprint(v)))
	}

	s.span.SetAttributes(attribute.String(key, string(data)))
}

// returns the trace id of the span in ctx, or ""
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}

	return sc.TraceID().String()
}

func toAttribute(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case []string:
		return attribute.StringSlice(key, val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return attribute.String(key, fmt.Sprint(val))
		}

		return attribute.String(key, string(data))
	}
}
