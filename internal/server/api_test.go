package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/notion"
)

const testToken = "secret_widget"

// stubStore is a single-database in-memory store. err, when set, is
// returned by every call.
type stubStore struct {
	mu    sync.Mutex
	db    notion.Database
	pages map[string]*notion.Page
	order []string
	err   error
}

func newStubStore() *stubStore {
	st := &stubStore{
		db: notion.Database{
			ID:    "db-1",
			Title: notion.NewRichText("일정"),
			Properties: map[string]notion.DatabaseProperty{
				"Name":     {Name: "Name", Type: notion.TypeTitle},
				"Date":     {Name: "Date", Type: notion.TypeDate},
				"Done":     {Name: "Done", Type: notion.TypeCheckbox},
				"Priority": {Name: "Priority", Type: notion.TypeCheckbox},
				"Category": {Name: "Category", Type: notion.TypeMultiSelect, MultiSelect: &notion.SelectConfig{
					Options: []notion.SelectOption{{Name: "업무", Color: "blue"}},
				}},
			},
		},
		pages: make(map[string]*notion.Page),
	}
	st.add("page-1", map[string]notion.PropertyValue{
		"Name": notion.TitleValue("회의"),
		"Date": notion.DateRange("2024-05-01T09:00:00", ""),
	})
	st.add("page-2", map[string]notion.PropertyValue{
		"Name": notion.TitleValue("메모"),
	})
	return st
}

func (s *stubStore) add(id string, props map[string]notion.PropertyValue) {
	s.pages[id] = &notion.Page{Object: "page", ID: id, Properties: props}
	s.order = append(s.order, id)
}

func (s *stubStore) SearchDatabases(ctx context.Context) ([]notion.Database, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []notion.Database{s.db}, nil
}

func (s *stubStore) QueryDatabase(ctx context.Context, databaseID string, q notion.QueryRequest) ([]notion.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notion.Page
	for _, id := range s.order {
		if p := s.pages[id]; !p.Archived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubStore) RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error) {
	if s.err != nil {
		return nil, s.err
	}
	db := s.db
	return &db, nil
}

func (s *stubStore) UpdateDatabase(ctx context.Context, databaseID string, properties map[string]*notion.DatabaseProperty) (*notion.Database, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, prop := range properties {
		if prop == nil {
			delete(s.db.Properties, name)
			continue
		}
		p := *prop
		p.Name = name
		s.db.Properties[name] = p
	}
	db := s.db
	return &db, nil
}

func (s *stubStore) CreatePage(ctx context.Context, databaseID string, properties map[string]notion.PropertyValue) (*notion.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "page-new"
	s.add(id, properties)
	return s.pages[id], nil
}

func (s *stubStore) RetrievePage(ctx context.Context, pageID string) (*notion.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[pageID]
	if !ok {
		return nil, &notion.APIError{Status: http.StatusNotFound, Code: "object_not_found", Message: "Could not find page"}
	}
	cp := *p
	return &cp, nil
}

func (s *stubStore) UpdatePage(ctx context.Context, pageID string, properties map[string]notion.PropertyValue) (*notion.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pages[pageID]
	for name, v := range properties {
		p.Properties[name] = v
	}
	return p, nil
}

func (s *stubStore) ArchivePage(ctx context.Context, pageID string) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[pageID].Archived = true
	return nil
}

func newTestHandler(t *testing.T, st *stubStore, config HTTPServerConfig, opts ...ServerContextOption) (http.Handler, *HealthChecker, *ServerContext) {
	t.Helper()
	kst := time.FixedZone("KST", 9*60*60)
	service := calendar.NewService(
		func(ctx context.Context, token string) (calendar.Store, error) { return st, nil },
		calendar.WithLocation(kst),
		calendar.WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, kst) }),
	)
	sc := NewServerContext(context.Background(), service, opts...)
	health := NewHealthChecker(sc, "test")
	return NewHandler(sc, health, config), health, sc
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/notion/"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAPI_ListDatabasesIsBareArray(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "databases", map[string]string{"token": testToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var dbs []calendar.Database
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dbs))
	assert.Equal(t, []calendar.Database{{ID: "db-1", Title: "일정"}}, dbs)
}

func TestAPI_ListEventsAcceptsDBIDAlias(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "events", map[string]string{"token": testToken, "dbId": "db-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var events []calendar.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "회의", events[0].Title)
	assert.Equal(t, "2024-05-01", events[0].Date)
	assert.Equal(t, "09:00", events[0].StartTime)
	assert.Empty(t, events[1].Date)
}

func TestAPI_BearerTokenFallback(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/notion/databases", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_MissingTokenIsClientError(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "databases", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "token")
}

func TestAPI_MalformedBody(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/notion/events", strings.NewReader(`{"token":`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestAPI_StoreErrorIsPrefixed(t *testing.T) {
	st := newStubStore()
	st.err = &notion.APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "API token is invalid."}
	h, _, _ := newTestHandler(t, st, HTTPServerConfig{})

	rec := post(t, h, "events", map[string]string{"token": testToken, "collectionId": "db-1"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "일정을 불러오지 못했습니다: API token is invalid.", decode(t, rec)["error"])
}

func TestAPI_AddEvent(t *testing.T) {
	st := newStubStore()
	h, _, _ := newTestHandler(t, st, HTTPServerConfig{})

	rec := post(t, h, "add-event", map[string]any{
		"token":        testToken,
		"collectionId": "db-1",
		"title":        "점심",
		"date":         "2024-05-02",
		"startTime":    "12:00",
		"category":     "업무",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "page-new", body["id"])

	page := st.pages["page-new"]
	assert.Equal(t, "2024-05-02T12:00:00", page.Properties["Date"].Date.Start)
	assert.Equal(t, []string{"업무"}, page.Properties["Category"].OptionNames())
}

func TestAPI_AddEventMissingTitle(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "add-event", map[string]any{"token": testToken, "collectionId": "db-1", "date": "2024-05-02"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_TogglePriorityTwice(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	first := decode(t, post(t, h, "toggle-priority", map[string]string{"token": testToken, "pageId": "page-1"}))
	assert.Equal(t, true, first["isPriority"])

	second := decode(t, post(t, h, "toggle-priority", map[string]string{"token": testToken, "entryId": "page-1"}))
	assert.Equal(t, false, second["isPriority"])
	assert.Equal(t, true, second["success"])
}

func TestAPI_ToggleCompletion(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "toggle-completion", map[string]string{"token": testToken, "entryId": "page-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["isCompleted"])
}

func TestAPI_Postpone(t *testing.T) {
	st := newStubStore()
	h, _, _ := newTestHandler(t, st, HTTPServerConfig{})

	rec := post(t, h, "postpone", map[string]string{"token": testToken, "entryId": "page-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-05-02", decode(t, rec)["newDate"])
	assert.Equal(t, "2024-05-02T09:00:00", st.pages["page-1"].Properties["Date"].Date.Start)
}

func TestAPI_PostponeWithoutDate(t *testing.T) {
	st := newStubStore()
	h, _, _ := newTestHandler(t, st, HTTPServerConfig{})

	rec := post(t, h, "postpone", map[string]string{"token": testToken, "entryId": "page-2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, calendar.ErrNoDate.Message, decode(t, rec)["error"])
	assert.Nil(t, st.pages["page-2"].Properties["Date"].Date)
}

func TestAPI_DeleteEvent(t *testing.T) {
	st := newStubStore()
	h, _, _ := newTestHandler(t, st, HTTPServerConfig{})

	rec := post(t, h, "delete-event", map[string]string{"token": testToken, "entryId": "page-2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, st.pages["page-2"].Archived)
}

func TestAPI_UpdateEvent(t *testing.T) {
	st := newStubStore()
	h, _, _ := newTestHandler(t, st, HTTPServerConfig{})

	rec := post(t, h, "update-event", map[string]any{
		"token":        testToken,
		"collectionId": "db-1",
		"entryId":      "page-1",
		"title":        "주간 회의",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true}, decode(t, rec))
	assert.Equal(t, "주간 회의", notion.PlainText(st.pages["page-1"].Properties["Name"].Title))
}

func TestAPI_Categories(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "categories", map[string]string{"token": testToken, "collectionId": "db-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"업무"}, decode(t, rec)["categories"])
}

func TestAPI_DescriptiveAliases(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})
	body := map[string]string{"token": testToken, "collectionId": "db-1"}

	for _, path := range []string{"list-categories", "init-collection-schema"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, post(t, h, path, body).Code)
		})
	}

	t.Run("list-databases", func(t *testing.T) {
		rec := post(t, h, "list-databases", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var out struct {
			Success   bool                `json:"success"`
			Databases []calendar.Database `json:"databases"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, out.Success)
		assert.Equal(t, []calendar.Database{{ID: "db-1", Title: "일정"}}, out.Databases)
	})

	t.Run("list-events", func(t *testing.T) {
		rec := post(t, h, "list-events", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var out struct {
			Success bool             `json:"success"`
			Events  []calendar.Event `json:"events"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, out.Success)
		assert.NotEmpty(t, out.Events)
	})

	t.Run("events stays a bare array", func(t *testing.T) {
		rec := post(t, h, "events", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var events []calendar.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		assert.NotEmpty(t, events)
	})
}

func TestAPI_NotFoundLogsWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{}, WithLogger(logger))

	rec := post(t, h, "postpone", map[string]string{"token": testToken, "entryId": "page-missing"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "일정 미루기 실패: Could not find page", decode(t, rec)["error"])

	var found map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record), line)
		if record["msg"] == "notion object not found" {
			found = record
		}
		assert.NotEqual(t, "calendar operation failed", record["msg"])
	}
	require.NotNil(t, found, logs.String())
	assert.Equal(t, "WARN", found["level"])
}

func TestAPI_InitSchemaTwice(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})
	body := map[string]string{"token": testToken, "collectionId": "db-1"}

	first := decode(t, post(t, h, "init-schema", body))
	assert.ElementsMatch(t, []any{"Routine", "RepeatDays"}, first["added"])

	second := decode(t, post(t, h, "init-schema", body))
	assert.Equal(t, []any{}, second["added"])
}

func TestAPI_ExportICS(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := post(t, h, "export-ics", map[string]string{"token": testToken, "collectionId": "db-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "page-1@notioncal")
}

func TestAPI_WrongMethod(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubStore(), HTTPServerConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notion/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
