// Package instrumentation provides OpenTelemetry instrumentation for the
// notioncal server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Notion API Metrics:
//   - notion_api_operations_total: Counter of Notion API calls by operation and status
//   - notion_api_operation_duration_seconds: Histogram of Notion API call durations
//
// Calendar Metrics:
//   - calendar_operations_total: Counter of calendar operations by operation and status
//   - calendar_operation_duration_seconds: Histogram of calendar operation durations
//   - category_entries_rewritten_total: Counter of entries rewritten by category rename/delete
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// Route labels are normalized through NormalizeRoute so unknown paths collapse
// into a single "other" series. Collection ids are only attached when
// DetailedLabels is set, and then only as a hash.
//
// # Tracing
//
// Spans are created for calendar operations (calendar.<operation>), MCP tool
// invocations (tool.<name>) and each Notion API call (notion.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: notioncal)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordCalendarOperation(ctx, instrumentation.OperationPostpone,
//		instrumentation.StatusSuccess, dbID, time.Since(start))
package instrumentation
