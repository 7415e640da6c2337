package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with a tool span, tool
// metrics and an audit record for operation.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("calendar_postpone_event",
//		instrumentation.OperationPostpone, sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, instrumentation.NewSpanAttributeBuilder().
			WithOperation(operation).
			WithCollection(CollectionFromArgs(args)).
			WithEntry(EntryFromArgs(args)).
			WithReadOnly(instrumentation.IsReadOperation(operation)).
			Build()...)
		defer span.End()

		invocation := instrumentation.NewOperationInvocation(operation, instrumentation.TransportMCP).
			WithTarget(CollectionFromArgs(args), EntryFromArgs(args)).
			WithSpanContext(ctx)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(resultText(result))
		}

		status := instrumentation.StatusSuccess
		if failure != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		sc.Audit().LogOperation(invocation.Complete(failure))

		return result, err
	}
}

func resultText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return text.Text
		}
	}
	return "tool returned an error"
}
