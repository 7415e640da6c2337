package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/notioncal/internal/config"
	"github.com/teemow/notioncal/internal/resources"
	"github.com/teemow/notioncal/internal/server"
	"github.com/teemow/notioncal/internal/tools/calendar_tools"
)

func newMCPCmd() *cobra.Command {
	var (
		flags       serveFlags
		notionToken string
		readWrite   bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the calendar operations as MCP tools over stdio",
		Long: `Start a Model Context Protocol (MCP) server on standard input/output.
The same calendar operations as the REST proxy are exposed as tools.

Authentication:
  Tools use the Notion integration token from --notion-token or NOTION_TOKEN.
  A tool call may pass its own "token" argument instead.

Safety Mode:
  By default only read tools are registered. Use --read-write to enable
  tools that create, change or archive Notion pages.

Logs are written to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("notion-token") {
				notionToken = os.Getenv("NOTION_TOKEN")
			}
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return runMCP(cfg, calendar_tools.Options{
				Token:    notionToken,
				ReadOnly: !readWrite,
			})
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to the YAML config file")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "", "IANA timezone used for routines (default \"Asia/Seoul\")")
	cmd.Flags().StringVar(&flags.notionURL, "notion-url", "", "Notion API base URL")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")
	cmd.Flags().StringVar(&notionToken, "notion-token", "", "Notion integration token (env NOTION_TOKEN)")
	cmd.Flags().BoolVar(&readWrite, "read-write", false, "Register tools that write to Notion")

	return cmd
}

func runMCP(cfg *config.Config, opts calendar_tools.Options) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(shutdownCtx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if opts.Token == "" {
		rt.logger.Warn("no default Notion token; every tool call must pass a token")
	}
	if opts.ReadOnly {
		rt.logger.Info("starting MCP server in read-only mode (use --read-write to enable write tools)")
	} else {
		rt.logger.Info("starting MCP server with write tools enabled")
	}

	mcpSrv, err := newMCPServer(rt.sc, opts)
	if err != nil {
		return err
	}
	return runStdioServer(shutdownCtx, mcpSrv)
}

// newMCPServer creates the MCP server and registers the calendar tools and
// resources.
func newMCPServer(sc *server.ServerContext, opts calendar_tools.Options) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("notioncal", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc, opts); err != nil {
		return nil, fmt.Errorf("failed to register calendar tools: %w", err)
	}
	if err := resources.RegisterCalendarResources(mcpSrv, sc, opts.Token, opts.ReadOnly); err != nil {
		return nil, fmt.Errorf("failed to register calendar resources: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
