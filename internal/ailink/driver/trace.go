package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxTraceBody caps request and response bodies written to the trace file.
// Image payloads routinely run to megabytes of base64.
const maxTraceBody = 16 << 10

// TraceEntry is one provider round trip. Entries are written one per line.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Operation   string          `json:"operation,omitempty"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

func (e TraceEntry) fields() []zap.Field {
	fields := []zap.Field{
		zap.Time("timestamp", e.Timestamp),
		zap.String("driver", e.Driver),
		zap.String("endpoint", e.Endpoint),
		zap.String("method", e.Method),
		zap.Int64("duration_ms", e.DurationMs),
	}
	if e.Operation != "" {
		fields = append(fields, zap.String("operation", e.Operation))
	}
	if e.Model != "" {
		fields = append(fields, zap.String("model", e.Model))
	}
	if body := clipBody(e.RequestBody); body != nil {
		fields = append(fields, zap.Reflect("request_body", body))
	}
	if e.StatusCode != 0 {
		fields = append(fields, zap.Int("status_code", e.StatusCode))
	}
	if body := clipBody(e.Response); body != nil {
		fields = append(fields, zap.Reflect("response", body))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	return fields
}

// tracer is a bare zap logger whose encoder emits only the entry fields.
type tracer struct {
	file   *os.File
	logger *zap.Logger
}

func newTracer(path string) (*tracer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(f), zapcore.DebugLevel)
	return &tracer{file: f, logger: zap.New(core)}, nil
}

func (t *tracer) close() {
	_ = t.logger.Sync()
	_ = t.file.Close()
}

var (
	activeTracer *tracer
	tracerMu     sync.RWMutex
)

// EnableTracing appends provider traces to path until the returned cleanup
// (or DisableTracing) runs. A previous trace file is closed first.
func EnableTracing(path string) (func(), error) {
	t, err := newTracer(path)
	if err != nil {
		return nil, err
	}

	tracerMu.Lock()
	previous := activeTracer
	activeTracer = t
	tracerMu.Unlock()

	if previous != nil {
		previous.close()
	}
	return DisableTracing, nil
}

func DisableTracing() {
	tracerMu.Lock()
	t := activeTracer
	activeTracer = nil
	tracerMu.Unlock()

	if t != nil {
		t.close()
	}
}

func IsTracingEnabled() bool {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	return activeTracer != nil
}

// Trace writes entry when tracing is on. Bodies are clipped with clipBody.
func Trace(entry TraceEntry) {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if activeTracer == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	activeTracer.logger.Info("", entry.fields()...)
}

// clipBody keeps small JSON bodies verbatim and replaces everything else,
// oversized payloads and multipart uploads alike, with a size marker.
func clipBody(body json.RawMessage) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if len(body) <= maxTraceBody && json.Valid(body) {
		return body
	}
	marker, _ := json.Marshal(fmt.Sprintf("<%d bytes omitted>", len(body)))
	return marker
}
