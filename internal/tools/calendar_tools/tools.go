package calendar_tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/notion"
	"github.com/teemow/notioncal/internal/server"
	"github.com/teemow/notioncal/internal/tools/batch"
	"github.com/teemow/notioncal/internal/tools/common"
)

// batchConcurrency bounds parallel Notion calls of one batch tool call.
// Notion allows about three requests per second per integration.
const batchConcurrency = 3

// Options configures the calendar tools.
type Options struct {
	// Token is the Notion integration token used when a call passes none.
	Token string

	// ReadOnly registers only the tools that do not write to Notion.
	ReadOnly bool
}

// RegisterCalendarTools registers all calendar tools with the MCP server.
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts Options) error {
	if sc == nil || sc.Service() == nil {
		return fmt.Errorf("calendar service is required")
	}

	if err := RegisterDatabaseTools(s, sc, opts); err != nil {
		return fmt.Errorf("failed to register database tools: %w", err)
	}
	if err := RegisterEventTools(s, sc, opts); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}
	if err := RegisterCategoryTools(s, sc, opts); err != nil {
		return fmt.Errorf("failed to register category tools: %w", err)
	}
	return nil
}

func tokenOption() mcp.ToolOption {
	return mcp.WithString(common.ArgToken,
		mcp.Description("Notion integration token. Defaults to the token the server was started with."),
	)
}

func collectionOption() mcp.ToolOption {
	return mcp.WithString(common.ArgCollectionID,
		mcp.Required(),
		mcp.Description("ID of the Notion database holding the calendar"),
	)
}

// toolError turns a calendar error into a tool error result. Validation
// messages are shown as is; store failures are prefixed with action.
func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(errorMessage(action, err))
}

func errorMessage(action string, err error) string {
	if calendar.IsValidation(err) {
		return err.Error()
	}
	return fmt.Sprintf("Failed to %s: %s", action, notion.Message(err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// entryIDs reads entryIds (string, comma list or array) or the single
// entryId argument.
func entryIDs(args map[string]any) ([]string, error) {
	if v, ok := args[common.ArgEntryIDs]; ok && v != nil {
		return batch.ParseIDs(v, common.ArgEntryIDs)
	}
	if id := common.EntryFromArgs(args); id != "" {
		return []string{id}, nil
	}
	return nil, fmt.Errorf("%s or %s is required", common.ArgEntryID, common.ArgEntryIDs)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// optionalString distinguishes an absent argument from an empty one.
func optionalString(args map[string]any, key string) *string {
	v, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func optionalBool(args map[string]any, key string) *bool {
	v, ok := args[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

// optionalDays reads a weekday list (0=Sunday..6=Saturday). JSON numbers
// arrive as float64.
func optionalDays(args map[string]any, key string) (*[]int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array of weekday numbers", key)
	}
	days := make([]int, 0, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok || f != float64(int(f)) {
			return nil, fmt.Errorf("%s[%d] must be an integer", key, i)
		}
		days = append(days, int(f))
	}
	return &days, nil
}
