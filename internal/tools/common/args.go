package common

// Argument names shared by the calendar tools. dbId and pageId are accepted
// as aliases, matching the REST API.
const (
	ArgToken        = "token"
	ArgCollectionID = "collectionId"
	ArgEntryID      = "entryId"
	ArgEntryIDs     = "entryIds"

	argDBID   = "dbId"
	argPageID = "pageId"
)

// CollectionFromArgs returns the collection id argument, or "".
func CollectionFromArgs(args map[string]any) string {
	return firstString(args, ArgCollectionID, argDBID)
}

// EntryFromArgs returns the single entry id argument, or "".
func EntryFromArgs(args map[string]any) string {
	return firstString(args, ArgEntryID, argPageID)
}

// TokenFromArgs returns the token argument, falling back to def. A token
// passed per call overrides the one the server was started with.
func TokenFromArgs(args map[string]any, def string) string {
	if token := firstString(args, ArgToken); token != "" {
		return token
	}
	return def
}

func firstString(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
