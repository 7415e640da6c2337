package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/notion"
	"github.com/teemow/notioncal/internal/server"
)

const (
	SettingsURI  = "calendar://settings"
	DatabasesURI = "calendar://databases"
)

// Settings is the content of the settings resource.
type Settings struct {
	Timezone   string              `json:"timezone"`
	Properties calendar.Properties `json:"properties"`
	ReadOnly   bool                `json:"readOnly"`
}

// RegisterCalendarResources registers the calendar resources. token is the
// default Notion token; without it the databases resource is not registered.
func RegisterCalendarResources(s *mcpserver.MCPServer, sc *server.ServerContext, token string, readOnly bool) error {
	if sc == nil || sc.Service() == nil {
		return fmt.Errorf("calendar service is required")
	}

	settingsResource := mcp.NewResource(
		SettingsURI,
		"Calendar Settings",
		mcp.WithResourceDescription("Property names and timezone the calendar tools use"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(settingsResource, settingsHandler(sc, readOnly))

	if token == "" {
		return nil
	}

	databasesResource := mcp.NewResource(
		DatabasesURI,
		"Calendar Databases",
		mcp.WithResourceDescription("Notion databases shared with the default integration token"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(databasesResource, databasesHandler(sc, token))

	return nil
}

func settingsHandler(sc *server.ServerContext, readOnly bool) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		svc := sc.Service()
		return jsonContents(request.Params.URI, Settings{
			Timezone:   svc.Location().String(),
			Properties: svc.Properties(),
			ReadOnly:   readOnly,
		})
	}
}

func databasesHandler(sc *server.ServerContext, token string) mcpserver.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbs, err := sc.Service().ListDatabases(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to list databases: %s", notion.Message(err))
		}
		return jsonContents(request.Params.URI, dbs)
	}
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
