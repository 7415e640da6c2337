package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// SplitDateTime splits a Notion date value into its calendar date and, when
// it carries a time, the HH:MM time of day.
//
//	"2024-05-01"                    -> "2024-05-01", ""
//	"2024-05-01T09:30:00.000+09:00" -> "2024-05-01", "09:30"
func SplitDateTime(value string) (date, clock string) {
	if len(value) < len(dateLayout) {
		return value, ""
	}
	date = value[:len(dateLayout)]
	if len(value) >= 16 && value[10] == 'T' {
		clock = value[11:16]
	}
	return date, clock
}

// CombineDateTime builds the Notion start or end value of a date and an
// optional HH:MM time.
func CombineDateTime(date, clock string) (string, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	if clock == "" {
		return date, nil
	}
	if _, err := time.Parse(clockLayout, clock); err != nil {
		return "", fmt.Errorf("invalid time %q: expected HH:MM", clock)
	}
	return date + "T" + clock + ":00", nil
}

// ShiftDate moves the calendar date of value by days and keeps whatever
// follows the date (time of day, offset) untouched.
func ShiftDate(value string, days int) (string, error) {
	if len(value) < len(dateLayout) {
		return "", fmt.Errorf("invalid date %q", value)
	}
	d, err := time.Parse(dateLayout, value[:len(dateLayout)])
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}
	return d.AddDate(0, 0, days).Format(dateLayout) + value[len(dateLayout):], nil
}

// weekdayTokens maps 0=Sunday..6=Saturday to the repeat-day option names.
var weekdayTokens = [7]string{"일", "월", "화", "수", "목", "금", "토"}

// WeekdayTokens returns the seven repeat-day tokens, Sunday first.
func WeekdayTokens() []string {
	return weekdayTokens[:]
}

// FormatRepeatDays converts weekday numbers to tokens.
func FormatRepeatDays(days []int) ([]string, error) {
	tokens := make([]string, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %d: expected 0 (Sunday) to 6 (Saturday)", d)
		}
		tokens = append(tokens, weekdayTokens[d])
	}
	return tokens, nil
}

// ParseRepeatDays converts tokens to sorted, unique weekday numbers.
// Unknown tokens are ignored.
func ParseRepeatDays(tokens []string) []int {
	seen := make(map[int]bool, len(tokens))
	days := make([]int, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		for i, w := range weekdayTokens {
			if w == t && !seen[i] {
				seen[i] = true
				days = append(days, i)
			}
		}
	}
	sort.Ints(days)
	return days
}

func containsDay(days []int, day time.Weekday) bool {
	for _, d := range days {
		if d == int(day) {
			return true
		}
	}
	return false
}

// rruleWeekdays is indexed Sunday first; rrule-go numbers Monday first.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// weeklyRule returns a weekly rule on days starting at dtstart.
func weeklyRule(days []int, dtstart time.Time) (*rrule.RRule, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("no repeat days")
	}
	byDay := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday %d", d)
		}
		byDay = append(byDay, rruleWeekdays[d])
	}
	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Byweekday: byDay,
	})
}

// NextOccurrence returns the first day on or after from's date that falls on
// one of days.
func NextOccurrence(days []int, from time.Time) (time.Time, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	r, err := weeklyRule(days, start)
	if err != nil {
		return time.Time{}, err
	}
	next := r.After(start, true)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no occurrence after %s", start.Format(dateLayout))
	}
	return next, nil
}
