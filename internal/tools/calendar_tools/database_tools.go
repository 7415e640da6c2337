package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/server"
	"github.com/teemow/notioncal/internal/tools/common"
)

// RegisterDatabaseTools registers tools that work on whole databases.
func RegisterDatabaseTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts Options) error {
	listDatabasesTool := mcp.NewTool("calendar_list_databases",
		mcp.WithDescription("List the Notion databases shared with the integration"),
		mcp.WithReadOnlyHintAnnotation(true),
		tokenOption(),
	)
	s.AddTool(listDatabasesTool, common.InstrumentedToolHandler("calendar_list_databases",
		instrumentation.OperationListDatabases, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListDatabases(ctx, request, sc, opts)
		}))

	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List all events of a calendar database, ascending by date. Routines repeating today show today's date."),
		mcp.WithReadOnlyHintAnnotation(true),
		tokenOption(),
		collectionOption(),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandler("calendar_list_events",
		instrumentation.OperationListEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc, opts)
		}))

	exportTool := mcp.NewTool("calendar_export_ics",
		mcp.WithDescription("Export a calendar database as an iCalendar (.ics) document"),
		mcp.WithReadOnlyHintAnnotation(true),
		tokenOption(),
		collectionOption(),
	)
	s.AddTool(exportTool, common.InstrumentedToolHandler("calendar_export_ics",
		instrumentation.OperationExportICS, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleExportICS(ctx, request, sc, opts)
		}))

	if opts.ReadOnly {
		return nil
	}

	initSchemaTool := mcp.NewTool("calendar_init_schema",
		mcp.WithDescription("Add the calendar properties (date, done, priority, category, routine, repeat days) a database is missing. Existing properties are left alone."),
		tokenOption(),
		collectionOption(),
	)
	s.AddTool(initSchemaTool, common.InstrumentedToolHandler("calendar_init_schema",
		instrumentation.OperationInitSchema, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleInitSchema(ctx, request, sc, opts)
		}))

	return nil
}

func handleListDatabases(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	dbs, err := sc.Service().ListDatabases(ctx, common.TokenFromArgs(args, opts.Token))
	if err != nil {
		return toolError("list databases", err), nil
	}
	return jsonResult(dbs)
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	events, err := sc.Service().ListEvents(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args))
	if err != nil {
		return toolError("list events", err), nil
	}
	return jsonResult(events)
}

func handleExportICS(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	out, err := sc.Service().ExportICS(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args))
	if err != nil {
		return toolError("export calendar", err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func handleInitSchema(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	added, err := sc.Service().InitSchema(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args))
	if err != nil {
		return toolError("initialize database", err), nil
	}
	return jsonResult(map[string]any{"success": true, "added": added})
}
