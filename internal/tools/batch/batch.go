package batch

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Status values of a Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome for one entry of a batch.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDs accepts a single id, a comma separated list or an array of ids.
func ParseIDs(param any, name string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", name)
	}

	var ids []string
	switch v := param.(type) {
	case string:
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	case []string:
		for _, id := range v {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", name, i)
			}
			if s = strings.TrimSpace(s); s != "" {
				ids = append(ids, s)
			}
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", name)
	}
	return ids, nil
}

// Process runs fn for every id with at most limit calls in flight and
// returns one Result per id in input order. A failing id does not stop the
// others.
func Process(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) (any, error)) []Result {
	if limit < 1 {
		limit = 1
	}
	results := make([]Result, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			value, err := fn(gctx, id)
			if err != nil {
				results[i] = Result{ID: id, Status: StatusError, Error: err.Error()}
				return nil
			}
			results[i] = Result{ID: id, Status: StatusSuccess, Value: value}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == StatusSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}
