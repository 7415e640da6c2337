package calendar_tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/server"
	"github.com/teemow/notioncal/internal/tools/batch"
	"github.com/teemow/notioncal/internal/tools/common"
)

// RegisterEventTools registers the event write tools. All of them change
// Notion, so nothing is registered in read-only mode.
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts Options) error {
	if opts.ReadOnly {
		return nil
	}

	addEventTool := mcp.NewTool("calendar_add_event",
		mcp.WithDescription("Add an event to a calendar database"),
		tokenOption(),
		collectionOption(),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date as YYYY-MM-DD"),
		),
		mcp.WithString("startTime",
			mcp.Description("Start time as HH:MM. Without it the event is all-day."),
		),
		mcp.WithString("endTime",
			mcp.Description("End time as HH:MM on the same date"),
		),
		mcp.WithString("category",
			mcp.Description("Category name"),
		),
		mcp.WithBoolean("isRoutine",
			mcp.Description("Mark the event as a weekly routine"),
		),
		mcp.WithArray("repeatDays",
			mcp.Description("Weekdays the routine repeats on, 0=Sunday..6=Saturday"),
			mcp.Items(map[string]any{"type": "integer", "minimum": 0, "maximum": 6}),
		),
	)
	s.AddTool(addEventTool, common.InstrumentedToolHandler("calendar_add_event",
		instrumentation.OperationAddEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAddEvent(ctx, request, sc, opts)
		}))

	updateEventTool := mcp.NewTool("calendar_update_event",
		mcp.WithDescription("Change fields of an event. Only the given fields are written; an empty repeatDays list clears the recurrence."),
		tokenOption(),
		collectionOption(),
		mcp.WithString(common.ArgEntryID,
			mcp.Required(),
			mcp.Description("ID of the event (Notion page)"),
		),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("date", mcp.Description("New date as YYYY-MM-DD")),
		mcp.WithString("startTime", mcp.Description("New start time as HH:MM, empty for all-day")),
		mcp.WithString("endTime", mcp.Description("New end time as HH:MM, empty to clear")),
		mcp.WithString("category", mcp.Description("New category, empty to clear")),
		mcp.WithBoolean("isRoutine", mcp.Description("Routine flag")),
		mcp.WithArray("repeatDays",
			mcp.Description("Weekdays the routine repeats on, 0=Sunday..6=Saturday"),
			mcp.Items(map[string]any{"type": "integer", "minimum": 0, "maximum": 6}),
		),
	)
	s.AddTool(updateEventTool, common.InstrumentedToolHandler("calendar_update_event",
		instrumentation.OperationUpdateEvent, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleUpdateEvent(ctx, request, sc, opts)
		}))

	entryTools := []struct {
		name        string
		operation   string
		description string
		destructive bool
		action      string
		run         func(ctx context.Context, svc *calendar.Service, token, id string) (any, error)
	}{
		{
			name:        "calendar_delete_event",
			operation:   instrumentation.OperationDeleteEvent,
			description: "Archive one or more events",
			destructive: true,
			action:      "delete event",
			run: func(ctx context.Context, svc *calendar.Service, token, id string) (any, error) {
				return true, svc.DeleteEvent(ctx, token, id)
			},
		},
		{
			name:        "calendar_toggle_priority",
			operation:   instrumentation.OperationTogglePriority,
			description: "Flip the priority flag of one or more events and return the new value",
			action:      "toggle priority",
			run: func(ctx context.Context, svc *calendar.Service, token, id string) (any, error) {
				return svc.TogglePriority(ctx, token, id)
			},
		},
		{
			name:        "calendar_toggle_completion",
			operation:   instrumentation.OperationToggleCompletion,
			description: "Flip the done flag of one or more events and return the new value",
			action:      "toggle completion",
			run: func(ctx context.Context, svc *calendar.Service, token, id string) (any, error) {
				return svc.ToggleCompletion(ctx, token, id)
			},
		},
		{
			name:        "calendar_postpone_event",
			operation:   instrumentation.OperationPostpone,
			description: "Move one or more events one day later, keeping their times, and return the new date",
			action:      "postpone event",
			run: func(ctx context.Context, svc *calendar.Service, token, id string) (any, error) {
				return svc.Postpone(ctx, token, id)
			},
		},
	}

	for _, et := range entryTools {
		tool := mcp.NewTool(et.name,
			mcp.WithDescription(et.description),
			mcp.WithDestructiveHintAnnotation(et.destructive),
			tokenOption(),
			mcp.WithString(common.ArgEntryID,
				mcp.Description("ID of the event (Notion page)"),
			),
			mcp.WithString(common.ArgEntryIDs,
				mcp.Description("Several event IDs, comma separated. Used instead of entryId."),
			),
		)
		s.AddTool(tool, common.InstrumentedToolHandler(et.name, et.operation, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleEntries(ctx, request, sc, opts, et.action, et.run)
			}))
	}

	return nil
}

func handleAddEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	in := calendar.NewEvent{
		Title:     stringArg(args, "title"),
		Date:      stringArg(args, "date"),
		StartTime: stringArg(args, "startTime"),
		EndTime:   stringArg(args, "endTime"),
		Category:  stringArg(args, "category"),
	}
	if v := optionalBool(args, "isRoutine"); v != nil {
		in.IsRoutine = *v
	}
	days, err := optionalDays(args, "repeatDays")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if days != nil {
		in.RepeatDays = *days
	}

	id, err := sc.Service().AddEvent(ctx, common.TokenFromArgs(args, opts.Token), common.CollectionFromArgs(args), in)
	if err != nil {
		return toolError("add event", err), nil
	}
	return jsonResult(map[string]any{"success": true, "id": id})
}

func handleUpdateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	days, err := optionalDays(args, "repeatDays")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch := calendar.EventPatch{
		Title:      optionalString(args, "title"),
		Date:       optionalString(args, "date"),
		StartTime:  optionalString(args, "startTime"),
		EndTime:    optionalString(args, "endTime"),
		Category:   optionalString(args, "category"),
		IsRoutine:  optionalBool(args, "isRoutine"),
		RepeatDays: days,
	}

	err = sc.Service().UpdateEvent(ctx, common.TokenFromArgs(args, opts.Token),
		common.CollectionFromArgs(args), common.EntryFromArgs(args), patch)
	if err != nil {
		return toolError("update event", err), nil
	}
	return jsonResult(map[string]any{"success": true})
}

// handleEntries runs run for every requested entry. A single entry answers
// with its value or error; several answer with a batch summary.
func handleEntries(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, opts Options,
	action string, run func(ctx context.Context, svc *calendar.Service, token, id string) (any, error),
) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	ids, err := entryIDs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	token := common.TokenFromArgs(args, opts.Token)

	if len(ids) == 1 {
		value, err := run(ctx, sc.Service(), token, ids[0])
		if err != nil {
			return toolError(action, err), nil
		}
		return jsonResult(map[string]any{"success": true, "id": ids[0], "value": value})
	}

	results := batch.Process(ctx, ids, batchConcurrency, func(ctx context.Context, id string) (any, error) {
		value, err := run(ctx, sc.Service(), token, id)
		if err != nil {
			return nil, errors.New(errorMessage(action, err))
		}
		return value, nil
	})
	summary := batch.Summarize(results)
	result, err := jsonResult(summary)
	if err == nil && summary.Successful == 0 {
		result.IsError = true
	}
	return result, err
}
