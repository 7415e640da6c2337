// Package cmd implements the command-line interface for notioncal.
//
// This package provides the following commands:
//   - serve: Run the REST proxy that turns calendar requests into Notion API calls
//   - mcp: Expose the calendar operations as MCP tools over stdio
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
