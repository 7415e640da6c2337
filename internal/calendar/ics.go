package calendar

import (
	"context"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/teemow/notioncal/internal/instrumentation"
)

const (
	icsProductID       = "notioncal"
	defaultTimedLength = time.Hour
)

// ExportICS renders the dated entries of a database as an iCalendar document.
func (s *Service) ExportICS(ctx context.Context, token, databaseID string) (out string, err error) {
	const op = instrumentation.OperationExportICS
	ctx, finish := s.begin(ctx, op, databaseID, "")
	defer func() { finish(err) }()

	if err := requireFields(op, "collectionId", databaseID); err != nil {
		return "", err
	}
	st, err := s.store(ctx, op, token)
	if err != nil {
		return "", err
	}
	db, err := st.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return "", err
	}
	events, err := s.queryEvents(ctx, st, databaseID)
	if err != nil {
		return "", err
	}

	name := db.PlainTitle()
	if name == "" {
		name = UntitledDatabase
	}
	return RenderICS(name, events, s.loc, s.now()), nil
}

// RenderICS builds an iCalendar document from events. Events are placed on
// their stored date; routines carry a weekly RRULE instead of the routine
// override. Entries without a date are skipped.
func RenderICS(name string, events []Event, loc *time.Location, stamp time.Time) string {
	if loc == nil {
		loc = time.UTC
	}

	cal := ics.NewCalendarFor(icsProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		day, err := time.ParseInLocation(dateLayout, e.OriginalDate, loc)
		if err != nil {
			continue
		}

		ev := cal.AddEvent(e.ID + "@" + icsProductID)
		ev.SetDtStampTime(stamp)
		ev.SetSummary(e.Title)
		if e.URL != "" {
			ev.SetURL(e.URL)
		}

		start := day
		if e.StartTime == "" {
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		} else {
			start = atClock(day, e.StartTime, loc)
			end := start.Add(defaultTimedLength)
			if e.EndTime != "" {
				if t := atClock(day, e.EndTime, loc); t.After(start) {
					end = t
				}
			}
			ev.SetStartAt(start)
			ev.SetEndAt(end)
		}

		if e.IsRoutine && len(e.RepeatDays) > 0 {
			if r, err := weeklyRule(e.RepeatDays, start); err == nil {
				ev.AddRrule(r.OrigOptions.RRuleString())
			}
		}
		if e.Category != nil {
			ev.AddCategory(*e.Category)
		}
		if e.IsCompleted {
			ev.SetStatus(ics.ObjectStatusCompleted)
		}
		if e.IsPriority {
			ev.SetPriority(1)
		}
	}
	return cal.Serialize()
}

func atClock(day time.Time, clock string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(clockLayout, clock, loc)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
