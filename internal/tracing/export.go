package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceStatusOK    = "OK"
	TraceStatusError = "ERROR"

	tagTraceName        = "mlflow.traceName"
	tagRetrieverSchemas = "mlflow.retrieverSchemas"
	metaTraceInputs     = "mlflow.traceInputs"
	metaTraceOutputs    = "mlflow.traceOutputs"

	defaultMaxPendingTraces = 1024
)

// writes finished spans to the structured log
type LogExporter struct{}

func NewLogExporter() *LogExporter {
	return &LogExporter{}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		logger.FromContext(ctx).Debug("span finished",
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"name", s.Name(),
			"type", attrString(s, AttrSpanType),
			"duration_ms", s.EndTime().Sub(s.StartTime()).Milliseconds(),
			"status", statusString(s),
		)
	}

	return nil
}

func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}

// stores traces through the tracking API
type TraceLogger interface {
	LogTrace(ctx context.Context, trace platform.TraceRecord) error
}

// serialized span sent with a trace
type SpanRecord struct {
	Name         string         `json:"name"`
	SpanID       string         `json:"span_id"`
	ParentSpanID string         `json:"parent_span_id,omitempty"`
	SpanType     string         `json:"span_type"`
	StartTimeNs  int64          `json:"start_time_ns"`
	EndTimeNs    int64          `json:"end_time_ns"`
	Status       string         `json:"status"`
	StatusMsg    string         `json:"status_message,omitempty"`
	Inputs       any            `json:"inputs,omitempty"`
	Outputs      any            `json:"outputs,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// buffers spans per trace and ships the whole trace once its root ends
type PlatformExporter struct {
	client       TraceLogger
	experimentID string
	maxPending   int

	mu      sync.Mutex
	pending map[trace.TraceID][]SpanRecord
	order   []trace.TraceID
}

func NewPlatformExporter(client TraceLogger, experimentID string) *PlatformExporter {
	return &PlatformExporter{
		client:       client,
		experimentID: experimentID,
		maxPending:   defaultMaxPendingTraces,
		pending:      make(map[trace.TraceID][]SpanRecord),
	}
}

func (e *PlatformExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	var errs []error

	for _, s := range spans {
		record, ok := e.add(s)
		if !ok {
			continue
		}

		if err := e.client.LogTrace(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (e *PlatformExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) > 0 {
		logger.Warn("dropping incomplete traces on shutdown", "count", len(e.pending))
	}

	e.pending = make(map[trace.TraceID][]SpanRecord)
	e.order = nil

	return nil
}

// buffers s; returns the assembled trace when s is the root span
func (e *PlatformExporter) add(s sdktrace.ReadOnlySpan) (platform.TraceRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	traceID := s.SpanContext().TraceID()

	if _, ok := e.pending[traceID]; !ok {
		e.order = append(e.order, traceID)
		e.evict()
	}

	e.pending[traceID] = append(e.pending[traceID], toSpanRecord(s))

	parent := s.Parent()
	if parent.IsValid() && !parent.IsRemote() {
		return platform.TraceRecord{}, false
	}

	records := e.pending[traceID]
	delete(e.pending, traceID)

	return e.buildTrace(s, records), true
}

// drops the oldest pending trace when the buffer is full
func (e *PlatformExporter) evict() {
	for len(e.order) > e.maxPending {
		oldest := e.order[0]
		e.order = e.order[1:]

		if _, ok := e.pending[oldest]; ok {
			delete(e.pending, oldest)
			logger.Warn("dropping incomplete trace", "trace_id", oldest.String())
		}
	}
}

func (e *PlatformExporter) buildTrace(root sdktrace.ReadOnlySpan, spans []SpanRecord) platform.TraceRecord {
	record := platform.TraceRecord{
		RequestID:       root.SpanContext().TraceID().String(),
		ExperimentID:    e.experimentID,
		TimestampMs:     root.StartTime().UnixMilli(),
		ExecutionTimeMs: root.EndTime().Sub(root.StartTime()).Milliseconds(),
		Status:          statusString(root),
		RequestMetadata: map[string]string{},
		Tags:            map[string]string{tagTraceName: root.Name()},
		Spans:           spans,
	}

	if in := attrString(root, AttrInputs); in != "" {
		record.RequestMetadata[metaTraceInputs] = in
	}

	if out := attrString(root, AttrOutputs); out != "" {
		record.RequestMetadata[metaTraceOutputs] = out
	}

	if schemas := RetrieverSchemas(); len(schemas) > 0 {
		if data, err := json.Marshal(schemas); err == nil {
			record.Tags[tagRetrieverSchemas] = string(data)
		}
	}

	return record
}

func toSpanRecord(s sdktrace.ReadOnlySpan) SpanRecord {
	record := SpanRecord{
		Name:        s.Name(),
		SpanID:      s.SpanContext().SpanID().String(),
		SpanType:    string(SpanTypeUnknown),
		StartTimeNs: s.StartTime().UnixNano(),
		EndTimeNs:   s.EndTime().UnixNano(),
		Status:      statusString(s),
		StatusMsg:   s.Status().Description,
	}

	if s.Parent().IsValid() {
		record.ParentSpanID = s.Parent().SpanID().String()
	}

	for _, kv := range s.Attributes() {
		key := string(kv.Key)

		switch key {
		case AttrSpanType:
			record.SpanType = kv.Value.AsString()
		case AttrInputs:
			record.Inputs = rawJSON(kv.Value.AsString())
		case AttrOutputs:
			record.Outputs = rawJSON(kv.Value.AsString())
		default:
			if record.Attributes == nil {
				record.Attributes = make(map[string]any)
			}
			record.Attributes[key] = kv.Value.AsInterface()
		}
	}

	return record
}

func rawJSON(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}

	return s
}

func attrString(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.AsString()
		}
	}

	return ""
}

func statusString(s sdktrace.ReadOnlySpan) string {
	if s.Status().Code == codes.Error {
		return TraceStatusError
	}

	return TraceStatusOK
}

// compile-time checks
var (
	_ sdktrace.SpanExporter = (*LogExporter)(nil)
	_ sdktrace.SpanExporter = (*PlatformExporter)(nil)
)
