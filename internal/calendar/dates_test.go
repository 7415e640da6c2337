package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDateTime(t *testing.T) {
	tests := []struct {
		in        string
		wantDate  string
		wantClock string
	}{
		{"2024-05-01", "2024-05-01", ""},
		{"2024-05-01T09:30:00.000+09:00", "2024-05-01", "09:30"},
		{"2024-05-01T18:05", "2024-05-01", "18:05"},
		{"", "", ""},
	}
	for _, tt := range tests {
		date, clock := SplitDateTime(tt.in)
		assert.Equal(t, tt.wantDate, date, tt.in)
		assert.Equal(t, tt.wantClock, clock, tt.in)
	}
}

func TestCombineDateTime(t *testing.T) {
	got, err := CombineDateTime("2024-05-01", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", got)

	got, err = CombineDateTime("2024-05-01", "09:30")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T09:30:00", got)

	_, err = CombineDateTime("2024-5-1", "")
	assert.Error(t, err)
	_, err = CombineDateTime("2024-05-01", "25:00")
	assert.Error(t, err)
}

func TestShiftDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-02-29T09:00", "2024-03-01T09:00"},
		{"2024-02-28", "2024-02-29"},
		{"2023-02-28", "2023-03-01"},
		{"2024-12-31", "2025-01-01"},
		{"2024-04-30T23:30:00.000+09:00", "2024-05-01T23:30:00.000+09:00"},
	}
	for _, tt := range tests {
		got, err := ShiftDate(tt.in, 1)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ShiftDate("tomorrow", 1)
	assert.Error(t, err)
}

func TestWeekdayTokens_Bijection(t *testing.T) {
	all := []int{0, 1, 2, 3, 4, 5, 6}
	tokens, err := FormatRepeatDays(all)
	require.NoError(t, err)
	assert.Equal(t, []string{"일", "월", "화", "수", "목", "금", "토"}, tokens)
	assert.Equal(t, WeekdayTokens(), tokens)

	seen := make(map[string]bool)
	for _, tok := range tokens {
		assert.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}

	assert.Equal(t, all, ParseRepeatDays(tokens))
}

func TestRepeatDays_RoundTripOrderIndependent(t *testing.T) {
	tokens, err := FormatRepeatDays([]int{5, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, ParseRepeatDays(tokens))
}

func TestParseRepeatDays_IgnoresUnknownAndDuplicates(t *testing.T) {
	assert.Equal(t, []int{0, 6}, ParseRepeatDays([]string{"토", "Sunday", " 일 ", "토"}))
	assert.Empty(t, ParseRepeatDays(nil))
}

func TestFormatRepeatDays_Range(t *testing.T) {
	_, err := FormatRepeatDays([]int{7})
	assert.Error(t, err)
	_, err = FormatRepeatDays([]int{-1})
	assert.Error(t, err)
}

func TestNextOccurrence(t *testing.T) {
	// testNow is a Wednesday.
	next, err := NextOccurrence([]int{3}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", next.Format(dateLayout))

	next, err = NextOccurrence([]int{1, 5}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", next.Format(dateLayout))

	next, err = NextOccurrence([]int{0}, time.Date(2024, 12, 30, 8, 0, 0, 0, kst))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", next.Format(dateLayout))

	_, err = NextOccurrence(nil, testNow)
	assert.Error(t, err)
}
