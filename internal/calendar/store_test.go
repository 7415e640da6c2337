package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teemow/notioncal/internal/notion"
)

var (
	kst = time.FixedZone("KST", 9*60*60)

	// Wednesday.
	testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, kst)
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu        sync.Mutex
	databases map[string]*notion.Database
	pages     map[string]*notion.Page
	order     []string
	nextID    int

	queries       []notion.QueryRequest
	pageUpdates   map[string]int
	schemaUpdates []map[string]*notion.DatabaseProperty

	failUpdatePage error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		databases:   make(map[string]*notion.Database),
		pages:       make(map[string]*notion.Page),
		pageUpdates: make(map[string]int),
	}
}

func (f *fakeStore) addDatabase(id, title string, props map[string]notion.DatabaseProperty) {
	if props == nil {
		props = map[string]notion.DatabaseProperty{}
	}
	hasTitle := false
	for _, p := range props {
		if p.Type == notion.TypeTitle {
			hasTitle = true
		}
	}
	if !hasTitle {
		props["Name"] = notion.DatabaseProperty{Name: "Name", Type: notion.TypeTitle, Title: &notion.EmptyObject{}}
	}
	var titleText []notion.RichText
	if title != "" {
		titleText = []notion.RichText{{PlainText: title}}
	}
	f.databases[id] = &notion.Database{Object: "database", ID: id, Title: titleText, Properties: props}
}

func (f *fakeStore) addPage(dbID, id string, props map[string]notion.PropertyValue) {
	f.pages[id] = &notion.Page{
		Object:     "page",
		ID:         id,
		URL:        "https://www.notion.so/" + id,
		Parent:     notion.Parent{DatabaseID: dbID},
		Properties: props,
	}
	f.order = append(f.order, id)
}

func (f *fakeStore) totalPageUpdates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.pageUpdates {
		n += c
	}
	return n
}

func notFound(kind, id string) error {
	return &notion.APIError{Status: 404, Code: "object_not_found", Message: fmt.Sprintf("Could not find %s with ID: %s.", kind, id)}
}

func (f *fakeStore) SearchDatabases(ctx context.Context) ([]notion.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notion.Database
	for _, db := range f.databases {
		out = append(out, *db)
	}
	return out, nil
}

func (f *fakeStore) QueryDatabase(ctx context.Context, databaseID string, q notion.QueryRequest) ([]notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.databases[databaseID]; !ok {
		return nil, notFound("database", databaseID)
	}
	f.queries = append(f.queries, q)
	var out []notion.Page
	for _, id := range f.order {
		p := f.pages[id]
		if p.Parent.DatabaseID == databaseID && !p.Archived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	db, ok := f.databases[databaseID]
	if !ok {
		return nil, notFound("database", databaseID)
	}
	cp := *db
	cp.Properties = make(map[string]notion.DatabaseProperty, len(db.Properties))
	for k, v := range db.Properties {
		cp.Properties[k] = v
	}
	return &cp, nil
}

func (f *fakeStore) UpdateDatabase(ctx context.Context, databaseID string, properties map[string]*notion.DatabaseProperty) (*notion.Database, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	db, ok := f.databases[databaseID]
	if !ok {
		return nil, notFound("database", databaseID)
	}
	f.schemaUpdates = append(f.schemaUpdates, properties)
	for name, p := range properties {
		next := *p
		next.Name = name
		switch {
		case p.Date != nil:
			next.Type = notion.TypeDate
		case p.Checkbox != nil:
			next.Type = notion.TypeCheckbox
		case p.Select != nil:
			next.Type = notion.TypeSelect
		case p.MultiSelect != nil:
			next.Type = notion.TypeMultiSelect
		}
		db.Properties[name] = next
	}
	cp := *db
	return &cp, nil
}

func (f *fakeStore) CreatePage(ctx context.Context, databaseID string, properties map[string]notion.PropertyValue) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.databases[databaseID]; !ok {
		return nil, notFound("database", databaseID)
	}
	f.nextID++
	id := fmt.Sprintf("page-%d", f.nextID)
	f.pages[id] = &notion.Page{Object: "page", ID: id, Parent: notion.Parent{DatabaseID: databaseID}, Properties: properties}
	f.order = append(f.order, id)
	return f.pages[id], nil
}

func (f *fakeStore) RetrievePage(ctx context.Context, pageID string) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return nil, notFound("page", pageID)
	}
	cp := *p
	cp.Properties = make(map[string]notion.PropertyValue, len(p.Properties))
	for k, v := range p.Properties {
		cp.Properties[k] = v
	}
	return &cp, nil
}

func (f *fakeStore) UpdatePage(ctx context.Context, pageID string, properties map[string]notion.PropertyValue) (*notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdatePage != nil {
		return nil, f.failUpdatePage
	}
	p, ok := f.pages[pageID]
	if !ok {
		return nil, notFound("page", pageID)
	}
	if p.Properties == nil {
		p.Properties = make(map[string]notion.PropertyValue)
	}
	for k, v := range properties {
		p.Properties[k] = v
	}
	f.pageUpdates[pageID]++
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ArchivePage(ctx context.Context, pageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[pageID]
	if !ok {
		return notFound("page", pageID)
	}
	p.Archived = true
	return nil
}

func newTestService(st *fakeStore, opts ...Option) *Service {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLocation(kst),
	}
	stores := func(ctx context.Context, token string) (Store, error) {
		return st, nil
	}
	return NewService(stores, append(base, opts...)...)
}
