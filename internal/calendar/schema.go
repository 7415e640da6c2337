package calendar

import (
	"context"

	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/notion"
)

type schemaField struct {
	name string
	prop *notion.DatabaseProperty
}

// requiredSchema lists the properties the calendar needs, in the order
// InitSchema reports them.
func (s *Service) requiredSchema() []schemaField {
	repeatOptions := make([]notion.SelectOption, 0, len(weekdayTokens))
	for _, t := range weekdayTokens {
		repeatOptions = append(repeatOptions, notion.SelectOption{Name: t})
	}

	return []schemaField{
		{s.props.Date, &notion.DatabaseProperty{Date: &notion.EmptyObject{}}},
		{s.props.Done, &notion.DatabaseProperty{Checkbox: &notion.EmptyObject{}}},
		{s.props.Priority, &notion.DatabaseProperty{Checkbox: &notion.EmptyObject{}}},
		{s.props.Category, &notion.DatabaseProperty{MultiSelect: &notion.SelectConfig{Options: []notion.SelectOption{}}}},
		{s.props.Routine, &notion.DatabaseProperty{Checkbox: &notion.EmptyObject{}}},
		{s.props.RepeatDays, &notion.DatabaseProperty{MultiSelect: &notion.SelectConfig{Options: repeatOptions}}},
	}
}

// InitSchema adds the calendar properties a database is missing and returns
// their names. Existing properties are never changed, whatever their type.
// When nothing is missing no write happens and the list is empty.
func (s *Service) InitSchema(ctx context.Context, token, databaseID string) (added []string, err error) {
	const op = instrumentation.OperationInitSchema
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

	added = []string{}
	missing := make(map[string]*notion.DatabaseProperty)
	for _, f := range s.requiredSchema() {
		if _, ok := db.Properties[f.name]; ok {
			continue
		}
		missing[f.name] = f.prop
		added = append(added, f.name)
	}
	if len(added) == 0 {
		return added, nil
	}

	if _, err := st.UpdateDatabase(ctx, databaseID, missing); err != nil {
		return nil, err
	}
	return added, nil
}
