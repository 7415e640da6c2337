// Package resources provides read-only MCP resources describing the
// calendar setup: the property names and timezone the server was started
// with, and the databases the default Notion token can see.
package resources
