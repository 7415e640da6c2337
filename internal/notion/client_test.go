package notion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), "secret_test", WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingToken(t *testing.T) {
	_, err := NewClient(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestClient_Headers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret_test", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultVersion, r.Header.Get("Notion-Version"))
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pages/page-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1","url":"https://notion.so/page-1","properties":{}}`))
	})

	page, err := client.RetrievePage(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, "https://notion.so/page-1", page.URL)
}

func TestClient_SearchDatabasesPaginates(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"value": "database", "property": "object"}, body["filter"])

		if calls == 1 {
			assert.Nil(t, body["start_cursor"])
			_, _ = w.Write([]byte(`{"results":[{"object":"database","id":"db-1","title":[{"plain_text":"Work"}]}],"has_more":true,"next_cursor":"c2"}`))
			return
		}
		assert.Equal(t, "c2", body["start_cursor"])
		_, _ = w.Write([]byte(`{"results":[{"object":"database","id":"db-2","title":[]}],"has_more":false,"next_cursor":null}`))
	})

	dbs, err := client.SearchDatabases(context.Background())
	require.NoError(t, err)
	require.Len(t, dbs, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Work", dbs[0].PlainTitle())
	assert.Equal(t, "", dbs[1].PlainTitle())
}

func TestClient_QueryDatabaseSorts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/databases/db-1/query", r.URL.Path)
		var body QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []Sort{{Property: "Date", Direction: Ascending}}, body.Sorts)
		assert.Equal(t, maxPageSize, body.PageSize)
		_, _ = w.Write([]byte(`{"results":[{"object":"page","id":"p1","properties":{"Done":{"type":"checkbox","checkbox":true}}}],"has_more":false}`))
	})

	pages, err := client.QueryDatabase(context.Background(), "db-1", QueryRequest{
		Sorts: []Sort{{Property: "Date", Direction: Ascending}},
	})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.True(t, pages[0].Properties["Done"].Checkbox)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find database with ID: db-x."}`))
	})

	_, err := client.RetrieveDatabase(context.Background(), "db-x")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "object_not_found", apiErr.Code)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Could not find database with ID: db-x.", Message(err))
}

func TestClient_APIErrorWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := client.ArchivePage(context.Background(), "page-1")
	require.Error(t, err)
	assert.Equal(t, "notion API returned status 502", Message(err))
	assert.False(t, IsNotFound(err))
}

func TestClient_ArchivePage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["archived"])
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1","archived":true}`))
	})

	require.NoError(t, client.ArchivePage(context.Background(), "page-1"))
}

func TestClient_CreatePage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages", r.URL.Path)
		var body struct {
			Parent     Parent                     `json:"parent"`
			Properties map[string]json.RawMessage `json:"properties"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "db-1", body.Parent.DatabaseID)
		assert.JSONEq(t, `{"type":"date","date":{"start":"2024-05-01"}}`, string(body.Properties["Date"]))
		assert.JSONEq(t, `{"type":"title","title":[{"type":"text","text":{"content":"회의"}}]}`, string(body.Properties["Name"]))
		_, _ = w.Write([]byte(`{"object":"page","id":"new-page"}`))
	})

	page, err := client.CreatePage(context.Background(), "db-1", map[string]PropertyValue{
		"Name": TitleValue("회의"),
		"Date": DateRange("2024-05-01", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "new-page", page.ID)
}

func TestClient_UpdateDatabase(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `{"checkbox":{}}`, string(body["properties"]["Done"]))
		_, _ = w.Write([]byte(`{"object":"database","id":"db-1","properties":{"Done":{"id":"x","name":"Done","type":"checkbox","checkbox":{}}}}`))
	})

	db, err := client.UpdateDatabase(context.Background(), "db-1", map[string]*DatabaseProperty{
		"Done": {Checkbox: &EmptyObject{}},
	})
	require.NoError(t, err)
	assert.Equal(t, TypeCheckbox, db.Properties["Done"].Type)
	assert.NotNil(t, db.Properties["Done"].Checkbox)
}
