// Package logging provides structured logging utilities for notioncal.
//
// All logging goes through the standard library's slog package. This package
// adds consistent attribute keys, logger construction from configuration and
// helpers that keep private data out of logs.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "rename_category")
//	logger.Info("category renamed",
//	    logging.Collection(dbID),
//	    logging.Count(n))
//
// # Security Considerations
//
//   - Notion database and page ids are hashed with HashID
//   - Integration tokens are never logged; use SanitizeToken
package logging
