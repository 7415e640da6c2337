package notion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Property types used by notioncal.
const (
	TypeTitle       = "title"
	TypeRichText    = "rich_text"
	TypeDate        = "date"
	TypeCheckbox    = "checkbox"
	TypeSelect      = "select"
	TypeMultiSelect = "multi_select"
)

// RichText is one segment of a Notion rich text array.
type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
}

// TextContent is the text payload of a rich text segment.
type TextContent struct {
	Content string `json:"content"`
}

// NewRichText returns a single text segment holding content.
func NewRichText(content string) []RichText {
	return []RichText{{Type: "text", Text: &TextContent{Content: content}}}
}

// String returns the segment's plain text.
func (r RichText) String() string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil {
		return r.Text.Content
	}
	return ""
}

// PlainText concatenates the plain text of all segments.
func PlainText(segments []RichText) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.String())
	}
	return b.String()
}

// EmptyObject is the {} configuration of property types without settings.
type EmptyObject struct{}

// SelectOption is one choice of a select or multi_select property.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// SelectConfig is the schema configuration of a select or multi_select property.
type SelectConfig struct {
	Options []SelectOption `json:"options"`
}

// DatabaseProperty is one property of a database schema. In update requests
// only the type-specific configuration needs to be set.
type DatabaseProperty struct {
	ID          string        `json:"id,omitempty"`
	Name        string        `json:"name,omitempty"`
	Type        string        `json:"type,omitempty"`
	Title       *EmptyObject  `json:"title,omitempty"`
	RichText    *EmptyObject  `json:"rich_text,omitempty"`
	Date        *EmptyObject  `json:"date,omitempty"`
	Checkbox    *EmptyObject  `json:"checkbox,omitempty"`
	Select      *SelectConfig `json:"select,omitempty"`
	MultiSelect *SelectConfig `json:"multi_select,omitempty"`
}

// Options returns the choices of a select or multi_select property.
func (p DatabaseProperty) Options() []SelectOption {
	switch {
	case p.Select != nil:
		return p.Select.Options
	case p.MultiSelect != nil:
		return p.MultiSelect.Options
	}
	return nil
}

// Database is a Notion database object.
type Database struct {
	Object     string                      `json:"object"`
	ID         string                      `json:"id"`
	URL        string                      `json:"url,omitempty"`
	Title      []RichText                  `json:"title"`
	Properties map[string]DatabaseProperty `json:"properties"`
	Archived   bool                        `json:"archived,omitempty"`
}

// PlainTitle returns the plain text of the first title segment, or "".
func (d Database) PlainTitle() string {
	if len(d.Title) == 0 {
		return ""
	}
	return d.Title[0].String()
}

// TitleProperty returns the name of the schema's title property, or "" if
// the schema has none.
func (d Database) TitleProperty() string {
	for name, prop := range d.Properties {
		if prop.Type == TypeTitle {
			return name
		}
	}
	return ""
}

// Parent references the database a page belongs to.
type Parent struct {
	Type       string `json:"type,omitempty"`
	DatabaseID string `json:"database_id"`
}

// Page is a Notion page, one entry of a database.
type Page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	URL            string                   `json:"url,omitempty"`
	Archived       bool                     `json:"archived,omitempty"`
	CreatedTime    string                   `json:"created_time,omitempty"`
	LastEditedTime string                   `json:"last_edited_time,omitempty"`
	Parent         Parent                   `json:"parent"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// DateValue is the value of a date property. Start and End are ISO 8601
// dates, with or without a time.
type DateValue struct {
	Start    string  `json:"start"`
	End      string  `json:"end,omitempty"`
	TimeZone *string `json:"time_zone,omitempty"`
}

// PropertyValue is the value of one page property. Only the field matching
// Type is meaningful.
type PropertyValue struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Checkbox    bool           `json:"checkbox,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
}

// MarshalJSON writes the type and its value only. Empty values are kept so
// that a nil Date or Select, or an empty MultiSelect, clears the property.
func (v PropertyValue) MarshalJSON() ([]byte, error) {
	var value interface{}
	switch v.Type {
	case TypeTitle:
		value = nonNil(v.Title)
	case TypeRichText:
		value = nonNil(v.RichText)
	case TypeDate:
		value = v.Date
	case TypeCheckbox:
		value = v.Checkbox
	case TypeSelect:
		value = v.Select
	case TypeMultiSelect:
		if v.MultiSelect == nil {
			value = []SelectOption{}
		} else {
			value = v.MultiSelect
		}
	default:
		return nil, fmt.Errorf("unsupported property type %q", v.Type)
	}
	return json.Marshal(map[string]interface{}{
		"type": v.Type,
		v.Type: value,
	})
}

func nonNil(segments []RichText) []RichText {
	if segments == nil {
		return []RichText{}
	}
	return segments
}

// OptionNames returns the option names of a select or multi_select value.
func (v PropertyValue) OptionNames() []string {
	switch v.Type {
	case TypeSelect:
		if v.Select != nil {
			return []string{v.Select.Name}
		}
	case TypeMultiSelect:
		names := make([]string, 0, len(v.MultiSelect))
		for _, o := range v.MultiSelect {
			names = append(names, o.Name)
		}
		return names
	}
	return nil
}

// Constructors for property values.

func TitleValue(text string) PropertyValue {
	return PropertyValue{Type: TypeTitle, Title: NewRichText(text)}
}

func DateRange(start, end string) PropertyValue {
	return PropertyValue{Type: TypeDate, Date: &DateValue{Start: start, End: end}}
}

func ClearDate() PropertyValue {
	return PropertyValue{Type: TypeDate}
}

func CheckboxValue(checked bool) PropertyValue {
	return PropertyValue{Type: TypeCheckbox, Checkbox: checked}
}

// SelectValue sets a select property. An empty name clears it.
func SelectValue(name string) PropertyValue {
	if name == "" {
		return PropertyValue{Type: TypeSelect}
	}
	return PropertyValue{Type: TypeSelect, Select: &SelectOption{Name: name}}
}

// MultiSelectValue sets a multi_select property to names. No names clears it.
func MultiSelectValue(names ...string) PropertyValue {
	opts := make([]SelectOption, 0, len(names))
	for _, n := range names {
		opts = append(opts, SelectOption{Name: n})
	}
	return PropertyValue{Type: TypeMultiSelect, MultiSelect: opts}
}

// Sort orders a database query.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Sort directions.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

// QueryRequest is the body of a database query. StartCursor and PageSize are
// managed by QueryDatabase.
type QueryRequest struct {
	Filter      interface{} `json:"filter,omitempty"`
	Sorts       []Sort      `json:"sorts,omitempty"`
	StartCursor string      `json:"start_cursor,omitempty"`
	PageSize    int         `json:"page_size,omitempty"`
}

type searchRequest struct {
	Filter      searchFilter `json:"filter"`
	StartCursor string       `json:"start_cursor,omitempty"`
	PageSize    int          `json:"page_size,omitempty"`
}

type searchFilter struct {
	Value    string `json:"value"`
	Property string `json:"property"`
}

type listResponse[T any] struct {
	Results    []T     `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

func (r listResponse[T]) cursor() string {
	if !r.HasMore || r.NextCursor == nil {
		return ""
	}
	return *r.NextCursor
}
