// Package common holds helpers shared by the MCP tool packages: argument
// lookup and the instrumentation wrapper every tool handler goes through.
package common
