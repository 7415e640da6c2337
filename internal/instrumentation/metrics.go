package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrOperation  = "operation"
	attrTool       = "tool"
	attrCollection = "collection"
)

var (
	httpBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	remoteBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
)

// Metrics records the proxy's counters and histograms.
// The zero value and a nil *Metrics are both valid no-op recorders.
type Metrics struct {
	// Inbound REST traffic
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Outbound calls to the Notion API
	notionOperationsTotal   metric.Int64Counter
	notionOperationDuration metric.Float64Histogram

	// Calendar operations as seen by callers (one may span several Notion calls)
	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram
	categoryEntriesRewritten  metric.Int64Counter

	// MCP tools
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates all instruments on the given meter.
// detailedLabels adds the hashed collection id to calendar operation metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.notionOperationsTotal, err = meter.Int64Counter(
		"notion_api_operations_total",
		metric.WithDescription("Total number of Notion API calls"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create notion_api_operations_total counter: %w", err)
	}

	if m.notionOperationDuration, err = meter.Float64Histogram(
		"notion_api_operation_duration_seconds",
		metric.WithDescription("Notion API call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(remoteBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create notion_api_operation_duration_seconds histogram: %w", err)
	}

	if m.calendarOperationsTotal, err = meter.Int64Counter(
		"calendar_operations_total",
		metric.WithDescription("Total number of calendar proxy operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create calendar_operations_total counter: %w", err)
	}

	if m.calendarOperationDuration, err = meter.Float64Histogram(
		"calendar_operation_duration_seconds",
		metric.WithDescription("Calendar proxy operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(remoteBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create calendar_operation_duration_seconds histogram: %w", err)
	}

	if m.categoryEntriesRewritten, err = meter.Int64Counter(
		"category_entries_rewritten_total",
		metric.WithDescription("Entries rewritten by category rename or delete"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create category_entries_rewritten_total counter: %w", err)
	}

	if m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(remoteBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an inbound request. path should already be
// normalized with NormalizeRoute.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordNotionAPIOperation records one outbound Notion API call.
//
// Parameters:
//   - operation: one of the NotionOp* constants
//   - status: StatusSuccess or StatusError
//   - duration: round-trip time including body decoding
func (m *Metrics) RecordNotionAPIOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.notionOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.notionOperationsTotal.Add(ctx, 1, attrs)
	m.notionOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCalendarOperation records a proxy operation. collection is only
// attached when detailed labels are enabled, and only in hashed form.
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status, collection string, duration time.Duration) {
	if m == nil || m.calendarOperationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && collection != "" {
		attrs = append(attrs, attribute.String(attrCollection, HashCollection(collection)))
	}

	m.calendarOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCategoryRewrite adds n rewritten entries for a rename or delete.
func (m *Metrics) RecordCategoryRewrite(ctx context.Context, operation string, n int) {
	if m == nil || m.categoryEntriesRewritten == nil || n <= 0 {
		return
	}
	m.categoryEntriesRewritten.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordToolInvocation records an MCP tool invocation.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
