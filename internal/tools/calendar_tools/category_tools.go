package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/server"
	"github.com/teemow/notioncal/internal/tools/common"
)

// RegisterCategoryTools registers the category tools.
func RegisterCategoryTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts Options) error {
	listTool := mcp.NewTool("calendar_list_categories",
		mcp.WithDescription("List the category options configured on a calendar database"),
		mcp.WithReadOnlyHintAnnotation(true),
		tokenOption(),
		collectionOption(),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("calendar_list_categories",
		instrumentation.OperationListCategories, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCategories(ctx, request, sc, opts)
		}))

	if opts.ReadOnly {
		return nil
	}

	renameTool := mcp.NewTool("calendar_rename_category",
		mcp.WithDescription("Rename a category option and rewrite every event using it. Not atomic: a failure part way leaves the option renamed."),
		tokenOption(),
		collectionOption(),
		mcp.WithString("oldName",
			mcp.Required(),
			mcp.Description("Current category name"),
		),
		mcp.WithString("newName",
			mcp.Required(),
			mcp.Description("New category name. An existing option with this name is merged into."),
		),
	)
	s.AddTool(renameTool, common.InstrumentedToolHandler("calendar_rename_category",
		instrumentation.OperationRenameCategory, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRenameCategory(ctx, request, sc, opts)
		}))

	deleteTool := mcp.NewTool("calendar_delete_category",
		mcp.WithDescription("Delete a category option and remove it from every event"),
		mcp.WithDestructiveHintAnnotation(true),
		tokenOption(),
		collectionOption(),
		mcp.WithString("categoryName",
			mcp.Required(),
			mcp.Description("Category to delete"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandler("calendar_delete_category",
		instrumentation.OperationDeleteCategory, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteCategory(ctx, request, sc, opts)
		}))

	return nil
}

func handleListCategories(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	categories, err := sc.Service().ListCategories(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args))
	if err != nil {
		return toolError("list categories", err), nil
	}
	return jsonResult(categories)
}

func handleRenameCategory(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	n, err := sc.Service().RenameCategory(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args),
		stringArg(args, "oldName"), stringArg(args, "newName"))
	if err != nil {
		return toolError("rename category", err), nil
	}
	return jsonResult(map[string]any{"success": true, "updated": n})
}

func handleDeleteCategory(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	n, err := sc.Service().DeleteCategory(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args),
		stringArg(args, "categoryName"))
	if err != nil {
		return toolError("delete category", err), nil
	}
	return jsonResult(map[string]any{"success": true, "updated": n})
}
