package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// Transport values for OperationInvocation.
const (
	TransportREST = "rest"
	TransportMCP  = "mcp"
)

// OperationInvocation captures one calendar operation for the audit log.
//
// Collection and entry ids identify a user's private Notion content. LogAttrs
// only emits their hashes; LogAuditAttrs emits them raw.
type OperationInvocation struct {
	Operation  string
	Transport  string
	Collection string
	Entry      string
	RequestID  string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewOperationInvocation starts timing an operation.
func NewOperationInvocation(operation, transport string) *OperationInvocation {
	return &OperationInvocation{
		Operation: operation,
		Transport: transport,
		StartTime: time.Now(),
	}
}

// WithTarget sets the collection and entry the operation touches. Either may be empty.
func (oi *OperationInvocation) WithTarget(collection, entry string) *OperationInvocation {
	oi.Collection = collection
	oi.Entry = entry
	return oi
}

// WithRequestID sets the inbound request id.
func (oi *OperationInvocation) WithRequestID(id string) *OperationInvocation {
	oi.RequestID = id
	return oi
}

// WithSpanContext copies trace and span ids from ctx.
func (oi *OperationInvocation) WithSpanContext(ctx context.Context) *OperationInvocation {
	oi.TraceID = GetTraceID(ctx)
	oi.SpanID = GetSpanID(ctx)
	return oi
}

// Complete stops the clock and records the outcome.
func (oi *OperationInvocation) Complete(err error) *OperationInvocation {
	oi.Duration = time.Since(oi.StartTime)
	oi.Success = err == nil
	if err != nil {
		oi.Error = err.Error()
	}
	return oi
}

// Status returns StatusSuccess or StatusError.
func (oi *OperationInvocation) Status() string {
	if oi.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns attributes with ids hashed.
func (oi *OperationInvocation) LogAttrs() []slog.Attr {
	return oi.attrs(HashCollection)
}

// LogAuditAttrs returns attributes with raw ids.
func (oi *OperationInvocation) LogAuditAttrs() []slog.Attr {
	return oi.attrs(func(id string) string { return id })
}

func (oi *OperationInvocation) attrs(id func(string) string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", oi.Operation),
		slog.String("transport", oi.Transport),
		slog.Duration("duration", oi.Duration),
		slog.Bool("success", oi.Success),
	}
	if oi.Collection != "" {
		attrs = append(attrs, slog.String("collection", id(oi.Collection)))
	}
	if oi.Entry != "" {
		attrs = append(attrs, slog.String("entry", id(oi.Entry)))
	}
	if oi.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", oi.RequestID))
	}
	if oi.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", oi.TraceID))
	}
	if oi.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", oi.SpanID))
	}
	if oi.Error != "" {
		attrs = append(attrs, slog.String("error", oi.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per calendar operation.
type AuditLogger struct {
	logger     *slog.Logger
	includeIDs bool
	enabled    bool
}

// NewAuditLoggerWithConfig creates an AuditLogger from config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includeIDs: config.IncludeIDs,
		enabled:    config.Enabled,
	}
}

// LogOperation logs a completed invocation. A nil logger is a no-op.
func (al *AuditLogger) LogOperation(oi *OperationInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includeIDs {
		attrs = oi.LogAuditAttrs()
	} else {
		attrs = oi.LogAttrs()
	}

	level := slog.LevelInfo
	msg := "operation_executed"
	if !oi.Success {
		level = slog.LevelWarn
		msg = "operation_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
