package instrumentation

import (
	"strings"
	"sync"

	"github.com/teemow/notioncal/internal/logging"
)

// Cardinality management helpers for metrics.
//
// Label values must come from a small closed set. Raw request paths and
// Notion ids are unbounded, so they pass through these helpers first.

// RoutePrefix is the path prefix of the REST API.
const RoutePrefix = "/api/notion/"

// RouteOther is the path label for anything that is not a known route.
const RouteOther = "other"

var (
	routesMu    sync.RWMutex
	knownRoutes = map[string]bool{
		"/healthz":          true,
		"/readyz":           true,
		"/healthz/detailed": true,
	}
)

// RegisterRoute adds path to the set of labels NormalizeRoute passes through.
// The server registers every route it mounts.
func RegisterRoute(path string) {
	routesMu.Lock()
	defer routesMu.Unlock()
	knownRoutes[path] = true
}

// NormalizeRoute maps a request path onto a bounded label value.
//
// Example:
//
//	NormalizeRoute("/api/notion/events")   // "/api/notion/events" once registered
//	NormalizeRoute("/wp-admin/login.php")  // "other"
func NormalizeRoute(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	routesMu.RLock()
	defer routesMu.RUnlock()
	if knownRoutes[path] {
		return path
	}
	return RouteOther
}

// HashCollection returns a short stable hash of a collection id.
func HashCollection(id string) string {
	return logging.HashID(id)
}

// Operation names for outbound Notion API calls.
const (
	NotionOpSearch           = "search"
	NotionOpQueryDatabase    = "query_database"
	NotionOpRetrieveDatabase = "retrieve_database"
	NotionOpUpdateDatabase   = "update_database"
	NotionOpCreatePage       = "create_page"
	NotionOpRetrievePage     = "retrieve_page"
	NotionOpUpdatePage       = "update_page"
)

// Operation names for calendar proxy operations.
const (
	OperationListDatabases    = "list_databases"
	OperationListEvents       = "list_events"
	OperationAddEvent         = "add_event"
	OperationUpdateEvent      = "update_event"
	OperationDeleteEvent      = "delete_event"
	OperationTogglePriority   = "toggle_priority"
	OperationToggleCompletion = "toggle_completion"
	OperationPostpone         = "postpone"
	OperationListCategories   = "list_categories"
	OperationRenameCategory   = "rename_category"
	OperationDeleteCategory   = "delete_category"
	OperationInitSchema       = "init_schema"
	OperationExportICS        = "export_ics"
)

// IsReadOperation reports whether operation only reads from Notion.
func IsReadOperation(operation string) bool {
	switch operation {
	case OperationListDatabases, OperationListEvents, OperationListCategories, OperationExportICS:
		return true
	}
	return false
}
