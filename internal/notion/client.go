package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/notioncal/internal/instrumentation"
)

const (
	// DefaultBaseURL is the Notion REST API root.
	DefaultBaseURL = "https://api.notion.com/v1"

	// DefaultVersion is the Notion-Version header sent with every request.
	DefaultVersion = "2022-06-28"

	// DefaultTimeout bounds a single Notion API call.
	DefaultTimeout = 30 * time.Second

	maxPageSize = 100
)

// Client talks to the Notion API on behalf of one integration token.
// A Client is cheap and is built per request.
type Client struct {
	http    *http.Client
	baseURL string
	version string
	metrics *instrumentation.Metrics
}

type clientOptions struct {
	baseURL   string
	version   string
	timeout   time.Duration
	transport http.RoundTripper
	metrics   *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option {
	return func(o *clientOptions) { o.version = v }
}

// WithTimeout sets the per-call timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTransport sets the base transport beneath auth and tracing.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithMetrics records every call in the notion_api_* instruments.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// NewClient returns a Client authenticating with token.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	o := clientOptions{
		baseURL:   DefaultBaseURL,
		version:   DefaultVersion,
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := &http.Client{Transport: otelhttp.NewTransport(o.transport)}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = o.timeout

	return &Client{
		http:    httpClient,
		baseURL: o.baseURL,
		version: o.version,
		metrics: o.metrics,
	}, nil
}

// do performs one API call. body and out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) (err error) {
	ctx, span := instrumentation.StartNotionSpan(ctx, op)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		c.metrics.RecordNotionAPIOperation(ctx, op, status, time.Since(start))
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int(instrumentation.SpanAttrStatusCode, resp.StatusCode))
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parseAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SearchDatabases lists every database shared with the integration.
func (c *Client) SearchDatabases(ctx context.Context) ([]Database, error) {
	var all []Database
	req := searchRequest{
		Filter:   searchFilter{Value: "database", Property: "object"},
		PageSize: maxPageSize,
	}
	for {
		var resp listResponse[Database]
		if err := c.do(ctx, instrumentation.NotionOpSearch, http.MethodPost, "/search", req, &resp); err != nil {
			return nil, fmt.Errorf("failed to search databases: %w", err)
		}
		all = append(all, resp.Results...)
		if req.StartCursor = resp.cursor(); req.StartCursor == "" {
			return all, nil
		}
	}
}

// QueryDatabase returns every page of a database matching q, following
// pagination until the last page.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q QueryRequest) ([]Page, error) {
	var all []Page
	q.PageSize = maxPageSize
	q.StartCursor = ""
	path := "/databases/" + url.PathEscape(databaseID) + "/query"
	for {
		var resp listResponse[Page]
		if err := c.do(ctx, instrumentation.NotionOpQueryDatabase, http.MethodPost, path, q, &resp); err != nil {
			return nil, fmt.Errorf("failed to query database: %w", err)
		}
		all = append(all, resp.Results...)
		if q.StartCursor = resp.cursor(); q.StartCursor == "" {
			return all, nil
		}
	}
}

// RetrieveDatabase fetches a database and its schema.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.do(ctx, instrumentation.NotionOpRetrieveDatabase, http.MethodGet, "/databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, fmt.Errorf("failed to retrieve database: %w", err)
	}
	return &db, nil
}

// UpdateDatabase adds or changes schema properties. Properties not named are left alone.
func (c *Client) UpdateDatabase(ctx context.Context, databaseID string, properties map[string]*DatabaseProperty) (*Database, error) {
	body := map[string]interface{}{"properties": properties}
	var db Database
	if err := c.do(ctx, instrumentation.NotionOpUpdateDatabase, http.MethodPatch, "/databases/"+url.PathEscape(databaseID), body, &db); err != nil {
		return nil, fmt.Errorf("failed to update database: %w", err)
	}
	return &db, nil
}

// CreatePage adds an entry to a database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]PropertyValue) (*Page, error) {
	body := map[string]interface{}{
		"parent":     Parent{DatabaseID: databaseID},
		"properties": properties,
	}
	var page Page
	if err := c.do(ctx, instrumentation.NotionOpCreatePage, http.MethodPost, "/pages", body, &page); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &page, nil
}

// RetrievePage fetches a page with its properties.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, instrumentation.NotionOpRetrievePage, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, fmt.Errorf("failed to retrieve page: %w", err)
	}
	return &page, nil
}

// UpdatePage writes the given properties of a page.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]PropertyValue) (*Page, error) {
	body := map[string]interface{}{"properties": properties}
	var page Page
	if err := c.do(ctx, instrumentation.NotionOpUpdatePage, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, &page); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	return &page, nil
}

// ArchivePage moves a page to the trash. Notion has no hard delete.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	body := map[string]bool{"archived": true}
	if err := c.do(ctx, instrumentation.NotionOpUpdatePage, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, nil); err != nil {
		return fmt.Errorf("failed to archive page: %w", err)
	}
	return nil
}
