package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/blockgraph/pkg/config"
	"github.com/soundprediction/blockgraph/pkg/types"
)

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	RequestID     string    `parquet:"request_id"`
	TraversalID   string    `parquet:"traversal_id"`
	RequestSource string    `parquet:"request_source"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// recordBuffer is shared by a handler and every handler derived from it.
type recordBuffer struct {
	mu        sync.Mutex
	outputDir string
	batchSize int
	records   []LogRecord
	files     []string
}

// ParquetHandler is a slog.Handler that passes every record on and also keeps
// records at or above MinLevel, writing them to a new Parquet file each time a
// batch fills up and on Flush.
type ParquetHandler struct {
	next     slog.Handler
	buf      *recordBuffer
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

// NewParquetHandler creates a new ParquetHandler. batchSize <= 0 means 100.
func NewParquetHandler(next slog.Handler, outputDir string, batchSize int) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ParquetHandler{
		next: next,
		buf: &recordBuffer{
			outputDir: outputDir,
			batchSize: batchSize,
			records:   make([]LogRecord, 0, batchSize),
		},
		minLevel: slog.LevelError,
	}, nil
}

// FromConfig wraps next when telemetry is enabled and returns next unchanged otherwise.
// The returned flush function is never nil.
func FromConfig(next slog.Handler, cfg config.TelemetryConfig) (slog.Handler, func() error, error) {
	if !cfg.Enabled {
		return next, func() error { return nil }, nil
	}
	h, err := NewParquetHandler(next, cfg.ParquetPath, cfg.BatchSize)
	if err != nil {
		return nil, nil, err
	}
	return h, h.Flush, nil
}

// WithMinLevel returns a handler sharing h's buffer that keeps records at level and above.
func (h *ParquetHandler) WithMinLevel(level slog.Level) *ParquetHandler {
	c := *h
	c.minLevel = level
	return &c
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level < h.minLevel {
		return nil
	}

	attrs := make(map[string]any)
	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		attrsJSON = []byte(fmt.Sprintf("%q", fmt.Sprint(attrs)))
	}

	var sourceFile string
	var line int
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		sourceFile, line = f.File, f.Line
	}

	record := LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		RequestID:     contextString(ctx, types.ContextKeyRequestID),
		TraversalID:   contextString(ctx, types.ContextKeyTraversalID),
		RequestSource: contextString(ctx, types.ContextKeyRequestSource),
		SourceFile:    sourceFile,
		LineNumber:    line,
		Attributes:    string(attrsJSON),
	}
	if record.TraversalID == "" {
		if v, ok := attrs["traversal_id"].(string); ok {
			record.TraversalID = v
		}
	}

	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	h.buf.records = append(h.buf.records, record)
	if len(h.buf.records) >= h.buf.batchSize {
		return h.buf.flush()
	}
	return nil
}

func contextString(ctx context.Context, key types.ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// Flush writes any buffered records.
func (h *ParquetHandler) Flush() error {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return h.buf.flush()
}

// Files lists the Parquet files written so far.
func (h *ParquetHandler) Files() []string {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return append([]string(nil), h.buf.files...)
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (b *recordBuffer) flush() error {
	if len(b.records) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("traversal_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(b.outputDir, filename)

	if err := parquet.WriteFile(path, b.records); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write telemetry parquet file: %v\n", err)
		return err
	}
	b.files = append(b.files, path)
	b.records = b.records[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.next = h.next.WithGroup(name)
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}

// ReadRecords loads every record from one Parquet file written by the handler.
func ReadRecords(path string) ([]LogRecord, error) {
	return parquet.ReadFile[LogRecord](path)
}
