package calendar

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/logging"
	"github.com/teemow/notioncal/internal/notion"
)

// ListCategories returns the option names of the category property. A
// database without the property or without options yields an empty list.
func (s *Service) ListCategories(ctx context.Context, token, databaseID string) (categories []string, err error) {
	const op = instrumentation.OperationListCategories
	ctx, finish := s.begin(ctx, op, databaseID, "")
	defer func() { finish(err) }()

	if err := requireFields(op, "collectionId", databaseID); err != nil {
		return nil, err
	}
	st, err := s.store(ctx, op, token)
	if err != nil {
		return nil, err
	}
	db, err := st.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	categories = []string{}
	for _, o := range db.Properties[s.props.Category].Options() {
		categories = append(categories, o.Name)
	}
	return categories, nil
}

// RenameCategory renames a category option and rewrites every entry using it.
// It returns the number of entries rewritten.
//
// The schema is changed first. If rewriting fails part way, entries already
// rewritten stay rewritten and the remaining ones keep the old name.
func (s *Service) RenameCategory(ctx context.Context, token, databaseID, oldName, newName string) (updated int, err error) {
	const op = instrumentation.OperationRenameCategory
	ctx, finish := s.begin(ctx, op, databaseID, "")
	defer func() { finish(err) }()

	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if err := requireFields(op, "collectionId", databaseID, "oldName", oldName, "newName", newName); err != nil {
		return 0, err
	}
	if oldName == newName {
		return 0, invalid(op, "새 이름이 기존 이름과 같습니다")
	}

	st, err := s.store(ctx, op, token)
	if err != nil {
		return 0, err
	}
	prop, err := s.categoryProperty(ctx, st, op, databaseID)
	if err != nil {
		return 0, err
	}

	current := prop.Options()
	var found, exists bool
	for _, o := range current {
		switch o.Name {
		case oldName:
			found = true
		case newName:
			exists = true
		}
	}
	if !found {
		return 0, invalid(op, "카테고리를 찾을 수 없습니다: "+oldName)
	}

	// The option is renamed in place, keeping its id, color and position.
	// Renaming onto an existing option merges into it.
	options := make([]notion.SelectOption, 0, len(current))
	for _, o := range current {
		if o.Name == oldName {
			if exists {
				continue
			}
			o.Name = newName
		}
		options = append(options, o)
	}

	if err := s.writeOptions(ctx, st, databaseID, prop.Type, options); err != nil {
		return 0, err
	}

	return s.rewriteEntries(ctx, st, op, databaseID, prop.Type, oldName, func(names []string) []string {
		out := make([]string, 0, len(names))
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if n == oldName {
				n = newName
			}
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
		return out
	})
}

// DeleteCategory removes a category option and strips it from every entry.
// It returns the number of entries rewritten. Like RenameCategory it is not
// atomic.
func (s *Service) DeleteCategory(ctx context.Context, token, databaseID, name string) (updated int, err error) {
	const op = instrumentation.OperationDeleteCategory
	ctx, finish := s.begin(ctx, op, databaseID, "")
	defer func() { finish(err) }()

	name = strings.TrimSpace(name)
	if err := requireFields(op, "collectionId", databaseID, "categoryName", name); err != nil {
		return 0, err
	}

	st, err := s.store(ctx, op, token)
	if err != nil {
		return 0, err
	}
	prop, err := s.categoryProperty(ctx, st, op, databaseID)
	if err != nil {
		return 0, err
	}

	var (
		options []notion.SelectOption
		found   bool
	)
	for _, o := range prop.Options() {
		if o.Name == name {
			found = true
			continue
		}
		options = append(options, o)
	}
	if !found {
		return 0, invalid(op, "카테고리를 찾을 수 없습니다: "+name)
	}

	if err := s.writeOptions(ctx, st, databaseID, prop.Type, options); err != nil {
		return 0, err
	}

	return s.rewriteEntries(ctx, st, op, databaseID, prop.Type, name, func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, n := range names {
			if n != name {
				out = append(out, n)
			}
		}
		return out
	})
}

func (s *Service) categoryProperty(ctx context.Context, st Store, op, databaseID string) (notion.DatabaseProperty, error) {
	db, err := st.RetrieveDatabase(ctx, databaseID)
	if err != nil {
		return notion.DatabaseProperty{}, err
	}
	prop, ok := db.Properties[s.props.Category]
	if !ok || (prop.Type != notion.TypeSelect && prop.Type != notion.TypeMultiSelect) {
		return notion.DatabaseProperty{}, invalid(op, "카테고리 속성이 없습니다: "+s.props.Category)
	}
	return prop, nil
}

func (s *Service) writeOptions(ctx context.Context, st Store, databaseID, kind string, options []notion.SelectOption) error {
	if options == nil {
		options = []notion.SelectOption{}
	}
	cfg := &notion.SelectConfig{Options: options}
	prop := &notion.DatabaseProperty{}
	if kind == notion.TypeSelect {
		prop.Select = cfg
	} else {
		prop.MultiSelect = cfg
	}
	_, err := st.UpdateDatabase(ctx, databaseID, map[string]*notion.DatabaseProperty{s.props.Category: prop})
	return err
}

// rewriteEntries finds entries whose category contains name and writes the
// result of rewrite back, at most rewriteConcurrency at a time.
func (s *Service) rewriteEntries(ctx context.Context, st Store, op, databaseID, kind, name string, rewrite func([]string) []string) (int, error) {
	filter := map[string]interface{}{
		"property": s.props.Category,
		kind:       map[string]string{"contains": name},
	}
	if kind == notion.TypeSelect {
		filter[kind] = map[string]string{"equals": name}
	}

	pages, err := st.QueryDatabase(ctx, databaseID, notion.QueryRequest{Filter: filter})
	if err != nil {
		return 0, err
	}

	var updated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rewriteConcurrency)

	for _, page := range pages {
		names := page.Properties[s.props.Category].OptionNames()
		if !contains(names, name) {
			continue
		}
		next := rewrite(names)

		var value notion.PropertyValue
		if kind == notion.TypeSelect {
			first := ""
			if len(next) > 0 {
				first = next[0]
			}
			value = notion.SelectValue(first)
		} else {
			value = notion.MultiSelectValue(next...)
		}

		pageID := page.ID
		g.Go(func() error {
			if _, err := st.UpdatePage(gctx, pageID, map[string]notion.PropertyValue{s.props.Category: value}); err != nil {
				return err
			}
			updated.Add(1)
			return nil
		})
	}

	err = g.Wait()
	n := int(updated.Load())
	s.metrics.RecordCategoryRewrite(ctx, op, n)
	if err != nil {
		s.logger.Warn("category rewrite stopped",
			logging.Operation(op),
			logging.Collection(databaseID),
			logging.Count(n),
			logging.Err(err))
		return 0, err
	}
	s.logger.Info("category rewrite finished",
		logging.Operation(op),
		logging.Collection(databaseID),
		logging.Count(n))
	return n, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
