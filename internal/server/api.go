package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/logging"
	"github.com/teemow/notioncal/internal/notion"
)

// maxBodyBytes caps request bodies. Calendar requests are a few hundred bytes.
const maxBodyBytes = 1 << 20

// Failure prefixes shown to the widget, one per operation.
const (
	prefixListDatabases    = "데이터베이스 목록을 불러오지 못했습니다"
	prefixListEvents       = "일정을 불러오지 못했습니다"
	prefixAddEvent         = "일정 추가 실패"
	prefixListCategories   = "카테고리를 불러오지 못했습니다"
	prefixRenameCategory   = "카테고리 이름 변경 실패"
	prefixDeleteCategory   = "카테고리 삭제 실패"
	prefixUpdateEvent      = "일정 수정 실패"
	prefixDeleteEvent      = "일정 삭제 실패"
	prefixTogglePriority   = "중요 표시 변경 실패"
	prefixToggleCompletion = "완료 상태 변경 실패"
	prefixPostpone         = "일정 미루기 실패"
	prefixInitSchema       = "데이터베이스 초기화 실패"
	prefixExportICS        = "캘린더 내보내기 실패"
)

// apiRequest is the union of all request bodies. dbId and pageId are the
// field names older widget builds send.
type apiRequest struct {
	Token        string `json:"token"`
	CollectionID string `json:"collectionId"`
	DBID         string `json:"dbId"`
	EntryID      string `json:"entryId"`
	PageID       string `json:"pageId"`

	Title      *string `json:"title"`
	Date       *string `json:"date"`
	StartTime  *string `json:"startTime"`
	EndTime    *string `json:"endTime"`
	Category   *string `json:"category"`
	IsRoutine  *bool   `json:"isRoutine"`
	RepeatDays *[]int  `json:"repeatDays"`

	OldName      string `json:"oldName"`
	NewName      string `json:"newName"`
	CategoryName string `json:"categoryName"`
}

func (r *apiRequest) collection() string {
	if r.CollectionID != "" {
		return r.CollectionID
	}
	return r.DBID
}

func (r *apiRequest) entry() string {
	if r.EntryID != "" {
		return r.EntryID
	}
	return r.PageID
}

func (r *apiRequest) newEvent() calendar.NewEvent {
	in := calendar.NewEvent{
		Title:     deref(r.Title),
		Date:      deref(r.Date),
		StartTime: deref(r.StartTime),
		EndTime:   deref(r.EndTime),
		Category:  deref(r.Category),
	}
	if r.IsRoutine != nil {
		in.IsRoutine = *r.IsRoutine
	}
	if r.RepeatDays != nil {
		in.RepeatDays = *r.RepeatDays
	}
	return in
}

func (r *apiRequest) patch() calendar.EventPatch {
	return calendar.EventPatch{
		Title:      r.Title,
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Category:   r.Category,
		IsRoutine:  r.IsRoutine,
		RepeatDays: r.RepeatDays,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// API serves the calendar operations over REST.
type API struct {
	sc *ServerContext
}

// NewAPI creates the REST API on top of sc.
func NewAPI(sc *ServerContext) *API {
	return &API{sc: sc}
}

type apiRoute struct {
	path      string
	operation string
	prefix    string
	handle    func(*API, *http.Request, *apiRequest) (any, error)
}

var apiRoutes = []apiRoute{
	{"databases", instrumentation.OperationListDatabases, prefixListDatabases, (*API).listDatabases},
	{"events", instrumentation.OperationListEvents, prefixListEvents, (*API).listEvents},
	{"add-event", instrumentation.OperationAddEvent, prefixAddEvent, (*API).addEvent},
	{"categories", instrumentation.OperationListCategories, prefixListCategories, (*API).listCategories},
	{"rename-category", instrumentation.OperationRenameCategory, prefixRenameCategory, (*API).renameCategory},
	{"delete-category", instrumentation.OperationDeleteCategory, prefixDeleteCategory, (*API).deleteCategory},
	{"update-event", instrumentation.OperationUpdateEvent, prefixUpdateEvent, (*API).updateEvent},
	{"delete-event", instrumentation.OperationDeleteEvent, prefixDeleteEvent, (*API).deleteEvent},
	{"toggle-priority", instrumentation.OperationTogglePriority, prefixTogglePriority, (*API).togglePriority},
	{"toggle-completion", instrumentation.OperationToggleCompletion, prefixToggleCompletion, (*API).toggleCompletion},
	{"postpone", instrumentation.OperationPostpone, prefixPostpone, (*API).postpone},
	{"init-schema", instrumentation.OperationInitSchema, prefixInitSchema, (*API).initSchema},
}

// aliasRoutes mounts the descriptive endpoint names next to the short ones
// the widget calls. The list aliases wrap their result in an object.
var aliasRoutes = []apiRoute{
	{"list-databases", instrumentation.OperationListDatabases, prefixListDatabases, (*API).listDatabasesObject},
	{"list-events", instrumentation.OperationListEvents, prefixListEvents, (*API).listEventsObject},
	{"list-categories", instrumentation.OperationListCategories, prefixListCategories, (*API).listCategories},
	{"init-collection-schema", instrumentation.OperationInitSchema, prefixInitSchema, (*API).initSchema},
}

// Register mounts every endpoint under instrumentation.RoutePrefix.
func (a *API) Register(mux *http.ServeMux) {
	for _, routes := range [][]apiRoute{apiRoutes, aliasRoutes} {
		for _, route := range routes {
			path := instrumentation.RoutePrefix + route.path
			mux.Handle("POST "+path, a.handler(route))
			instrumentation.RegisterRoute(path)
		}
	}

	path := instrumentation.RoutePrefix + "export-ics"
	mux.Handle("POST "+path, http.HandlerFunc(a.exportICS))
	instrumentation.RegisterRoute(path)
}

func (a *API) handler(route apiRoute) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(r)
		if err != nil {
			a.audit(r, route.operation, nil, err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		body, err := route.handle(a, r, req)
		a.audit(r, route.operation, req, err)
		if err != nil {
			a.fail(w, r, route, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, route apiRoute, err error) {
	if calendar.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	level, msg := slog.LevelError, "calendar operation failed"
	if notion.IsNotFound(err) {
		level, msg = slog.LevelWarn, "notion object not found"
	}
	a.sc.Logger().LogAttrs(r.Context(), level, msg,
		logging.Operation(route.operation),
		slog.String(logging.KeyRequestID, RequestIDFromContext(r.Context())),
		logging.Err(err))
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %s", route.prefix, notion.Message(err)))
}

func (a *API) audit(r *http.Request, operation string, req *apiRequest, err error) {
	oi := instrumentation.NewOperationInvocation(operation, instrumentation.TransportREST).
		WithRequestID(RequestIDFromContext(r.Context())).
		WithSpanContext(r.Context())
	if req != nil {
		oi.WithTarget(req.collection(), req.entry())
	}
	a.sc.Audit().LogOperation(oi.Complete(err))
}

// decodeRequest reads the JSON body. An Authorization bearer header fills
// in a missing token.
func decodeRequest(r *http.Request) (*apiRequest, error) {
	req := &apiRequest{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("잘못된 요청 본문입니다: %w", err)
	}
	if req.Token == "" {
		if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			req.Token = strings.TrimSpace(auth[7:])
		}
	}
	return req, nil
}

func (a *API) listDatabases(r *http.Request, req *apiRequest) (any, error) {
	return a.sc.Service().ListDatabases(r.Context(), req.Token)
}

func (a *API) listEvents(r *http.Request, req *apiRequest) (any, error) {
	return a.sc.Service().ListEvents(r.Context(), req.Token, req.collection())
}

func (a *API) listDatabasesObject(r *http.Request, req *apiRequest) (any, error) {
	dbs, err := a.sc.Service().ListDatabases(r.Context(), req.Token)
	if err != nil {
		return nil, err
	}
	return struct {
		Success   bool                `json:"success"`
		Databases []calendar.Database `json:"databases"`
	}{true, dbs}, nil
}

func (a *API) listEventsObject(r *http.Request, req *apiRequest) (any, error) {
	events, err := a.sc.Service().ListEvents(r.Context(), req.Token, req.collection())
	if err != nil {
		return nil, err
	}
	return struct {
		Success bool             `json:"success"`
		Events  []calendar.Event `json:"events"`
	}{true, events}, nil
}

func (a *API) addEvent(r *http.Request, req *apiRequest) (any, error) {
	id, err := a.sc.Service().AddEvent(r.Context(), req.Token, req.collection(), req.newEvent())
	if err != nil {
		return nil, err
	}
	return struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}{true, id}, nil
}

func (a *API) listCategories(r *http.Request, req *apiRequest) (any, error) {
	categories, err := a.sc.Service().ListCategories(r.Context(), req.Token, req.collection())
	if err != nil {
		return nil, err
	}
	return struct {
		Success    bool     `json:"success"`
		Categories []string `json:"categories"`
	}{true, categories}, nil
}

type updatedResponse struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

func (a *API) renameCategory(r *http.Request, req *apiRequest) (any, error) {
	n, err := a.sc.Service().RenameCategory(r.Context(), req.Token, req.collection(), req.OldName, req.NewName)
	if err != nil {
		return nil, err
	}
	return updatedResponse{true, n}, nil
}

func (a *API) deleteCategory(r *http.Request, req *apiRequest) (any, error) {
	n, err := a.sc.Service().DeleteCategory(r.Context(), req.Token, req.collection(), req.CategoryName)
	if err != nil {
		return nil, err
	}
	return updatedResponse{true, n}, nil
}

func (a *API) updateEvent(r *http.Request, req *apiRequest) (any, error) {
	if err := a.sc.Service().UpdateEvent(r.Context(), req.Token, req.collection(), req.entry(), req.patch()); err != nil {
		return nil, err
	}
	return successResponse{true}, nil
}

func (a *API) deleteEvent(r *http.Request, req *apiRequest) (any, error) {
	if err := a.sc.Service().DeleteEvent(r.Context(), req.Token, req.entry()); err != nil {
		return nil, err
	}
	return successResponse{true}, nil
}

func (a *API) togglePriority(r *http.Request, req *apiRequest) (any, error) {
	v, err := a.sc.Service().TogglePriority(r.Context(), req.Token, req.entry())
	if err != nil {
		return nil, err
	}
	return struct {
		Success    bool `json:"success"`
		IsPriority bool `json:"isPriority"`
	}{true, v}, nil
}

func (a *API) toggleCompletion(r *http.Request, req *apiRequest) (any, error) {
	v, err := a.sc.Service().ToggleCompletion(r.Context(), req.Token, req.entry())
	if err != nil {
		return nil, err
	}
	return struct {
		Success     bool `json:"success"`
		IsCompleted bool `json:"isCompleted"`
	}{true, v}, nil
}

func (a *API) postpone(r *http.Request, req *apiRequest) (any, error) {
	date, err := a.sc.Service().Postpone(r.Context(), req.Token, req.entry())
	if err != nil {
		return nil, err
	}
	return struct {
		Success bool   `json:"success"`
		NewDate string `json:"newDate"`
	}{true, date}, nil
}

func (a *API) initSchema(r *http.Request, req *apiRequest) (any, error) {
	added, err := a.sc.Service().InitSchema(r.Context(), req.Token, req.collection())
	if err != nil {
		return nil, err
	}
	return struct {
		Success bool     `json:"success"`
		Added   []string `json:"added"`
	}{true, added}, nil
}

// exportICS answers with a text/calendar body instead of JSON.
func (a *API) exportICS(w http.ResponseWriter, r *http.Request) {
	route := apiRoute{path: "export-ics", operation: instrumentation.OperationExportICS, prefix: prefixExportICS}

	req, err := decodeRequest(r)
	if err != nil {
		a.audit(r, route.operation, nil, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := a.sc.Service().ExportICS(r.Context(), req.Token, req.collection())
	a.audit(r, route.operation, req, err)
	if err != nil {
		a.fail(w, r, route, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
