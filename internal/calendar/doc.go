// Package calendar turns a Notion database into a simple calendar.
//
// A Service reads database pages and reshapes them into flat Event values.
// It also writes calendar edits back as page property updates. It owns no
// state: every call builds a Store from the caller's token, does one or a
// few Notion calls and returns.
//
// Property names (Date, Done, Priority, Category, Routine, RepeatDays) are
// configurable through Properties. Day-of-week numbers are 0=Sunday through
// 6=Saturday. Repeat days are stored in Notion as the Korean weekday tokens
// 일 월 화 수 목 금 토.
//
// Toggle and category rename/delete read a value and then write it back with
// no revision check. Two concurrent writers can lose an update.
//
// Example usage:
//
//	svc := calendar.NewService(calendar.NotionStores(),
//	    calendar.WithLocation(seoul))
//	events, err := svc.ListEvents(ctx, token, databaseID)
package calendar
