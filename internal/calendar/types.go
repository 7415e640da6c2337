package calendar

const (
	// DefaultTitle is shown for entries with an empty title.
	DefaultTitle = "제목 없음"

	// UntitledDatabase is shown for databases with an empty title.
	UntitledDatabase = "Untitled"
)

// Event is the flat calendar view of one database entry.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Date is the displayed date. For a routine that repeats today it is
	// today's date; OriginalDate always holds the stored date.
	Date         string `json:"date"`
	OriginalDate string `json:"originalDate"`
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`

	IsCompleted bool    `json:"isCompleted"`
	IsPriority  bool    `json:"isPriority"`
	Category    *string `json:"category"`
	IsRoutine   bool    `json:"isRoutine"`
	RepeatDays  []int   `json:"repeatDays"`
	URL         string  `json:"url"`

	// NextOccurrence is the next date on or after today a routine repeats on.
	NextOccurrence string `json:"nextOccurrence,omitempty"`
}

// Database is one database the integration can see.
type Database struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Properties names the database properties the calendar reads and writes.
type Properties struct {
	Date       string `yaml:"date" json:"date"`
	Done       string `yaml:"done" json:"done"`
	Priority   string `yaml:"priority" json:"priority"`
	Category   string `yaml:"category" json:"category"`
	Routine    string `yaml:"routine" json:"routine"`
	RepeatDays string `yaml:"repeat_days" json:"repeatDays"`
}

// DefaultProperties returns the property names used when none are configured.
func DefaultProperties() Properties {
	return Properties{
		Date:       "Date",
		Done:       "Done",
		Priority:   "Priority",
		Category:   "Category",
		Routine:    "Routine",
		RepeatDays: "RepeatDays",
	}
}

// WithDefaults fills empty names from DefaultProperties.
func (p Properties) WithDefaults() Properties {
	d := DefaultProperties()
	if p.Date == "" {
		p.Date = d.Date
	}
	if p.Done == "" {
		p.Done = d.Done
	}
	if p.Priority == "" {
		p.Priority = d.Priority
	}
	if p.Category == "" {
		p.Category = d.Category
	}
	if p.Routine == "" {
		p.Routine = d.Routine
	}
	if p.RepeatDays == "" {
		p.RepeatDays = d.RepeatDays
	}
	return p
}

// NewEvent is the input of AddEvent.
type NewEvent struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime,omitempty"`
	EndTime    string `json:"endTime,omitempty"`
	Category   string `json:"category,omitempty"`
	IsRoutine  bool   `json:"isRoutine,omitempty"`
	RepeatDays []int  `json:"repeatDays,omitempty"`
}

// EventPatch is the input of UpdateEvent. Nil fields are left unchanged.
// An empty Category clears the category; an empty RepeatDays clears the
// recurrence.
type EventPatch struct {
	Title      *string `json:"title,omitempty"`
	Date       *string `json:"date,omitempty"`
	StartTime  *string `json:"startTime,omitempty"`
	EndTime    *string `json:"endTime,omitempty"`
	Category   *string `json:"category,omitempty"`
	IsRoutine  *bool   `json:"isRoutine,omitempty"`
	RepeatDays *[]int  `json:"repeatDays,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.StartTime == nil && p.EndTime == nil &&
		p.Category == nil && p.IsRoutine == nil && p.RepeatDays == nil
}
