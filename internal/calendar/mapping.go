package calendar

import (
	"time"

	"github.com/teemow/notioncal/internal/notion"
)

// toEvent reshapes a page into an Event. today decides the routine override
// and the next occurrence.
func (s *Service) toEvent(page notion.Page, today time.Time) Event {
	e := Event{
		ID:    page.ID,
		Title: pageTitle(page),
		URL:   page.URL,
	}

	if v, ok := page.Properties[s.props.Date]; ok && v.Date != nil {
		e.OriginalDate, e.StartTime = SplitDateTime(v.Date.Start)
		_, e.EndTime = SplitDateTime(v.Date.End)
	}
	e.Date = e.OriginalDate

	e.IsCompleted = page.Properties[s.props.Done].Checkbox
	e.IsPriority = page.Properties[s.props.Priority].Checkbox
	e.IsRoutine = page.Properties[s.props.Routine].Checkbox

	if v, ok := page.Properties[s.props.Category]; ok {
		if names := v.OptionNames(); len(names) > 0 {
			category := names[0]
			e.Category = &category
		}
	}
	if v, ok := page.Properties[s.props.RepeatDays]; ok && v.Type == notion.TypeMultiSelect {
		e.RepeatDays = ParseRepeatDays(v.OptionNames())
	}

	if e.IsRoutine && len(e.RepeatDays) > 0 {
		if containsDay(e.RepeatDays, today.Weekday()) {
			e.Date = today.Format(dateLayout)
		}
		if next, err := NextOccurrence(e.RepeatDays, today); err == nil {
			e.NextOccurrence = next.Format(dateLayout)
		}
	}
	return e
}

// pageTitle returns the plain text of the page's title property, or DefaultTitle.
func pageTitle(page notion.Page) string {
	for _, v := range page.Properties {
		if v.Type != notion.TypeTitle {
			continue
		}
		if title := notion.PlainText(v.Title); title != "" {
			return title
		}
	}
	return DefaultTitle
}
