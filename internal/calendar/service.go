package calendar

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/logging"
	"github.com/teemow/notioncal/internal/notion"
)

// Store is the subset of the Notion API the calendar needs.
// *notion.Client implements it.
type Store interface {
	SearchDatabases(ctx context.Context) ([]notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, q notion.QueryRequest) ([]notion.Page, error)
	RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error)
	UpdateDatabase(ctx context.Context, databaseID string, properties map[string]*notion.DatabaseProperty) (*notion.Database, error)
	CreatePage(ctx context.Context, databaseID string, properties map[string]notion.PropertyValue) (*notion.Page, error)
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties map[string]notion.PropertyValue) (*notion.Page, error)
	ArchivePage(ctx context.Context, pageID string) error
}

// StoreFactory builds a Store for one caller token.
type StoreFactory func(ctx context.Context, token string) (Store, error)

// NotionStores returns a StoreFactory creating Notion API clients.
func NotionStores(opts ...notion.Option) StoreFactory {
	return func(ctx context.Context, token string) (Store, error) {
		client, err := notion.NewClient(ctx, token, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Service implements the calendar operations on top of a Store.
type Service struct {
	stores             StoreFactory
	props              Properties
	loc                *time.Location
	now                func() time.Time
	logger             *slog.Logger
	metrics            *instrumentation.Metrics
	rewriteConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithProperties sets the property names. Empty names keep their default.
func WithProperties(p Properties) Option {
	return func(s *Service) { s.props = p.WithDefaults() }
}

// WithLocation sets the timezone "today" is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records calendar operations in m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRewriteConcurrency bounds how many entries a category rename or delete
// rewrites in parallel. Values below 1 mean 1.
func WithRewriteConcurrency(n int) Option {
	return func(s *Service) {
		if n < 1 {
			n = 1
		}
		s.rewriteConcurrency = n
	}
}

// NewService creates a Service.
func NewService(stores StoreFactory, opts ...Option) *Service {
	s := &Service{
		stores:             stores,
		props:              DefaultProperties(),
		loc:                time.UTC,
		now:                time.Now,
		logger:             slog.Default(),
		rewriteConcurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Properties returns the configured property names.
func (s *Service) Properties() Properties {
	return s.props
}

// Location returns the timezone "today" is evaluated in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// begin starts the span of an operation. The returned func records its
// outcome and must be called exactly once.
func (s *Service) begin(ctx context.Context, op, collection, entry string) (context.Context, func(error)) {
	ctx, span := instrumentation.StartOperationSpan(ctx, op, instrumentation.NewSpanAttributeBuilder().
		WithCollection(collection).
		WithEntry(entry).
		Build()...)
	start := time.Now()

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()

		duration := time.Since(start)
		s.metrics.RecordCalendarOperation(ctx, op, status, collection, duration)
		s.logger.Debug("calendar operation",
			logging.Operation(op),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
	}
}

func (s *Service) store(ctx context.Context, op, token string) (Store, error) {
	if strings.TrimSpace(token) == "" {
		return nil, missing(op, "token")
	}
	return s.stores(ctx, token)
}

func requireFields(op string, fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if strings.TrimSpace(fields[i+1]) == "" {
			return missing(op, fields[i])
		}
	}
	return nil
}

// ListDatabases returns every database shared with the integration.
func (s *Service) ListDatabases(ctx context.Context, token string) (dbs []Database, err error) {
	const op = instrumentation.OperationListDatabases
	ctx, finish := s.begin(ctx, op, "", "")
	defer func() { finish(err) }()

	st, err := s.store(ctx, op, token)
	if err != nil {
		return nil, err
	}
	results, err := st.SearchDatabases(ctx)
	if err != nil {
		return nil, err
	}

	dbs = make([]Database, 0, len(results))
	for _, db := range results {
		title := db.PlainTitle()
		if title == "" {
			title = UntitledDatabase
		}
		dbs = append(dbs, Database{ID: db.ID, Title: title})
	}
	return dbs, nil
}

// ListEvents returns all entries of a database, ascending by date.
func (s *Service) ListEvents(ctx context.Context, token, databaseID string) (events []Event, err error) {
	const op = instrumentation.OperationListEvents
	ctx, finish := s.begin(ctx, op, databaseID, "")
	defer func() { finish(err) }()

	if err := requireFields(op, "collectionId", databaseID); err != nil {
		return nil, err
	}
	st, err := s.store(ctx, op, token)
	if err != nil {
		return nil, err
	}
	return s.queryEvents(ctx, st, databaseID)
}

func (s *Service) queryEvents(ctx context.Context, st Store, databaseID string) ([]Event, error) {
	pages, err := st.QueryDatabase(ctx, databaseID, notion.QueryRequest{
		Sorts: []notion.Sort{{Property: s.props.Date, Direction: notion.Ascending}},
	})
	if err != nil {
		return nil, err
	}

	today := s.today()
	events := make([]Event, 0, len(pages))
	for _, page := range pages {
		events = append(events, s.toEvent(page, today))
	}
	return events, nil
}

// AddEvent creates an entry and returns its id.
func (s *Service) AddEvent(ctx context.Context, token, databaseID string, in NewEvent) (id string, err error) {
	const op = instrumentation.OperationAddEvent
	ctx, finish := s.begin(ctx, op, databaseID, "")
	defer func() { finish(err) }()

	if err := requireFields(op, "collectionId", databaseID, "title", in.Title, "date", in.Date); err != nil {
		return "", err
	}
	start, err := CombineDateTime(in.Date, in.StartTime)
	if err != nil {
		return "", invalid(op, err.Error())
	}
	var end string
	if in.EndTime != "" {
		if end, err = CombineDateTime(in.Date, in.EndTime); err != nil {
			return "", invalid(op, err.Error())
		}
	}
	tokens, err := FormatRepeatDays(in.RepeatDays)
	if err != nil {
		return "", invalid(op, err.Error())
	}

	st, err := s.store(ctx, op, token)
	if err != nil {
		return "", err
	}
	db, err := st.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return "", err
	}

	props := map[string]notion.PropertyValue{
		titleProperty(db): notion.TitleValue(strings.TrimSpace(in.Title)),
		s.props.Date:      notion.DateRange(start, end),
	}
	if in.Category != "" {
		props[s.props.Category] = s.categoryValue(db, []string{in.Category})
	}
	if in.IsRoutine {
		props[s.props.Routine] = notion.CheckboxValue(true)
	}
	if len(tokens) > 0 {
		props[s.props.RepeatDays] = notion.MultiSelectValue(tokens...)
	}

	page, err := st.CreatePage(ctx, databaseID, props)
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

// UpdateEvent writes the fields set in patch.
func (s *Service) UpdateEvent(ctx context.Context, token, databaseID, entryID string, patch EventPatch) (err error) {
	const op = instrumentation.OperationUpdateEvent
	ctx, finish := s.begin(ctx, op, databaseID, entryID)
	defer func() { finish(err) }()

	if err := requireFields(op, "collectionId", databaseID, "entryId", entryID); err != nil {
		return err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return missing(op, "title")
	}
	var tokens []string
	if patch.RepeatDays != nil {
		if tokens, err = FormatRepeatDays(*patch.RepeatDays); err != nil {
			return invalid(op, err.Error())
		}
	}

	st, err := s.store(ctx, op, token)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	props := make(map[string]notion.PropertyValue)

	if patch.Title != nil || patch.Category != nil {
		db, err := st.RetrieveDatabase(ctx, databaseID)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			props[titleProperty(db)] = notion.TitleValue(strings.TrimSpace(*patch.Title))
		}
		if patch.Category != nil {
			var names []string
			if *patch.Category != "" {
				names = []string{*patch.Category}
			}
			props[s.props.Category] = s.categoryValue(db, names)
		}
	}

	if patch.Date != nil || patch.StartTime != nil || patch.EndTime != nil {
		value, err := s.patchedDate(ctx, st, op, entryID, patch)
		if err != nil {
			return err
		}
		props[s.props.Date] = value
	}
	if patch.IsRoutine != nil {
		props[s.props.Routine] = notion.CheckboxValue(*patch.IsRoutine)
	}
	if patch.RepeatDays != nil {
		props[s.props.RepeatDays] = notion.MultiSelectValue(tokens...)
	}

	_, err = st.UpdatePage(ctx, entryID, props)
	return err
}

// patchedDate merges the date fields of patch with the entry's current
// value. The entry is only read when some date field is not supplied. An
// empty date with no times clears the date, moving the entry to the inbox.
func (s *Service) patchedDate(ctx context.Context, st Store, op, entryID string, patch EventPatch) (notion.PropertyValue, error) {
	if patch.Date != nil && *patch.Date == "" && patch.StartTime == nil && patch.EndTime == nil {
		return notion.ClearDate(), nil
	}

	var date, startClock, endClock string
	if patch.Date == nil || patch.StartTime == nil || patch.EndTime == nil {
		page, err := st.RetrievePage(ctx, entryID)
		if err != nil {
			return notion.PropertyValue{}, err
		}
		if v, ok := page.Properties[s.props.Date]; ok && v.Date != nil {
			date, startClock = SplitDateTime(v.Date.Start)
			_, endClock = SplitDateTime(v.Date.End)
		}
	}
	if patch.Date != nil {
		date = *patch.Date
	}
	if patch.StartTime != nil {
		startClock = *patch.StartTime
	}
	if patch.EndTime != nil {
		endClock = *patch.EndTime
	}
	if date == "" {
		return notion.PropertyValue{}, missing(op, "date")
	}

	start, err := CombineDateTime(date, startClock)
	if err != nil {
		return notion.PropertyValue{}, invalid(op, err.Error())
	}
	var end string
	if endClock != "" {
		if end, err = CombineDateTime(date, endClock); err != nil {
			return notion.PropertyValue{}, invalid(op, err.Error())
		}
	}
	return notion.DateRange(start, end), nil
}

// DeleteEvent archives an entry.
func (s *Service) DeleteEvent(ctx context.Context, token, entryID string) (err error) {
	const op = instrumentation.OperationDeleteEvent
	ctx, finish := s.begin(ctx, op, "", entryID)
	defer func() { finish(err) }()

	if err := requireFields(op, "entryId", entryID); err != nil {
		return err
	}
	st, err := s.store(ctx, op, token)
	if err != nil {
		return err
	}
	return st.ArchivePage(ctx, entryID)
}

// TogglePriority flips the priority flag and returns the new value.
func (s *Service) TogglePriority(ctx context.Context, token, entryID string) (bool, error) {
	return s.toggle(ctx, instrumentation.OperationTogglePriority, token, entryID, s.props.Priority)
}

// ToggleCompletion flips the completion flag and returns the new value.
func (s *Service) ToggleCompletion(ctx context.Context, token, entryID string) (bool, error) {
	return s.toggle(ctx, instrumentation.OperationToggleCompletion, token, entryID, s.props.Done)
}

func (s *Service) toggle(ctx context.Context, op, token, entryID, property string) (value bool, err error) {
	ctx, finish := s.begin(ctx, op, "", entryID)
	defer func() { finish(err) }()

	if err := requireFields(op, "entryId", entryID); err != nil {
		return false, err
	}
	st, err := s.store(ctx, op, token)
	if err != nil {
		return false, err
	}
	page, err := st.RetrievePage(ctx, entryID)
	if err != nil {
		return false, err
	}

	value = !page.Properties[property].Checkbox
	if _, err := st.UpdatePage(ctx, entryID, map[string]notion.PropertyValue{
		property: notion.CheckboxValue(value),
	}); err != nil {
		return false, err
	}
	return value, nil
}

// Postpone moves an entry one day later and returns its new date.
// An entry without a date yields ErrNoDate and is left unchanged.
func (s *Service) Postpone(ctx context.Context, token, entryID string) (newDate string, err error) {
	const op = instrumentation.OperationPostpone
	ctx, finish := s.begin(ctx, op, "", entryID)
	defer func() { finish(err) }()

	if err := requireFields(op, "entryId", entryID); err != nil {
		return "", err
	}
	st, err := s.store(ctx, op, token)
	if err != nil {
		return "", err
	}
	page, err := st.RetrievePage(ctx, entryID)
	if err != nil {
		return "", err
	}

	current := page.Properties[s.props.Date].Date
	if current == nil || current.Start == "" {
		return "", ErrNoDate
	}
	start, err := ShiftDate(current.Start, 1)
	if err != nil {
		return "", invalid(op, err.Error())
	}
	var end string
	if current.End != "" {
		if end, err = ShiftDate(current.End, 1); err != nil {
			return "", invalid(op, err.Error())
		}
	}

	if _, err := st.UpdatePage(ctx, entryID, map[string]notion.PropertyValue{
		s.props.Date: {Type: notion.TypeDate, Date: &notion.DateValue{Start: start, End: end, TimeZone: current.TimeZone}},
	}); err != nil {
		return "", err
	}
	newDate, _ = SplitDateTime(start)
	return newDate, nil
}

func titleProperty(db *notion.Database) string {
	if name := db.TitleProperty(); name != "" {
		return name
	}
	return "Name"
}

// categoryValue writes names as the category property's schema kind asks.
// Unknown or missing properties are written as multi_select.
func (s *Service) categoryValue(db *notion.Database, names []string) notion.PropertyValue {
	if db != nil && db.Properties[s.props.Category].Type == notion.TypeSelect {
		if len(names) == 0 {
			return notion.SelectValue("")
		}
		return notion.SelectValue(names[0])
	}
	return notion.MultiSelectValue(names...)
}
