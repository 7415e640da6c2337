// Package calendar_tools exposes the Notion calendar operations as MCP tools.
//
// Read tools (list databases, events and categories, iCalendar export) are
// always registered. Tools that write to Notion are only registered when the
// server runs in read-write mode.
//
// Every tool takes an optional token argument; without it the token the
// server was started with is used. Entry tools (toggle, postpone, delete)
// accept several ids in entryIds and answer with a per-entry summary.
package calendar_tools
