// Package rest implements a resource provider backed by a conventional REST
// collection endpoint.
//
//	GET    {base}?page=1&limit=10&sort[0][field]=name&sort[0][order]=asc
//	GET    {base}/{id}
//	POST   {base}
//	PUT    {base}/{id}
//	DELETE {base}/{id}
//
// List bodies may be a bare array or an object holding the records under
// "results" or "data" (or the key set by WithRecordsKey), with the total
// under "total" or "count". Every record
// is parsed against the resource shape.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/broady/reskit/resource"
	"github.com/broady/reskit/shape"
)

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 10 << 20

// Option configures the provider.
type Option func(*config)

type config struct {
	client     *http.Client
	headers    http.Header
	logger     *slog.Logger
	recordsKey string
}

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *config) { cfg.client = c }
}

// WithHeader adds a header to every upstream request.
func WithHeader(key, value string) Option {
	return func(cfg *config) { cfg.headers.Add(key, value) }
}

// WithRecordsKey sets the list body key holding the records, for APIs that
// use neither "results" nor "data".
func WithRecordsKey(key string) Option {
	return func(cfg *config) { cfg.recordsKey = key }
}

// WithLogger sets the logger for request tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// New returns a provider factory for the collection at baseURL.
func New[T any](baseURL string, opts ...Option) resource.ProviderFactory[T] {
	cfg := &config{
		client:  &http.Client{Timeout: 30 * time.Second},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return func(s *shape.Shape) resource.Provider[T] {
		return &Provider[T]{
			base:  strings.TrimRight(baseURL, "/"),
			shape: s,
			cfg:   cfg,
		}
	}
}

// Provider is the REST provider for records of type T.
type Provider[T any] struct {
	base  string
	shape *shape.Shape
	cfg   *config
}

func (p *Provider[T]) GetMany(ctx context.Context, params resource.GetManyParams) (resource.GetManyResponse[T], error) {
	var out resource.GetManyResponse[T]

	u := p.base
	if q := EncodeQuery(params); q != "" {
		u += "?" + q
	}
	body, err := p.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}

	doc := gjson.ParseBytes(body)
	records := doc
	switch {
	case p.cfg.recordsKey != "":
		records = doc.Get(p.cfg.recordsKey)
	case !doc.IsArray():
		records = doc.Get("results")
		if !records.Exists() {
			records = doc.Get("data")
		}
	}
	raw := []byte("[]")
	if records.IsArray() {
		raw = []byte(records.Raw)
	}
	if out.Data, err = shape.ParseSlice[T](p.shape, raw); err != nil {
		return out, err
	}

	total := doc.Get("total")
	if !total.Exists() {
		total = doc.Get("count")
	}
	if total.Type == gjson.Number {
		n := int(total.Int())
		out.Total = &n
		if params.Pagination.Paged() {
			pc := resource.PageCount(n, *params.Pagination.PageSize)
			out.PageCount = &pc
		}
	}
	return out, nil
}

func (p *Provider[T]) GetOne(ctx context.Context, id resource.ID) (resource.DataResponse[T], error) {
	body, err := p.do(ctx, http.MethodGet, p.item(id), nil)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	return p.parseOne(body)
}

func (p *Provider[T]) Create(ctx context.Context, payload resource.Partial) (resource.DataResponse[T], error) {
	body, err := p.do(ctx, http.MethodPost, p.base, payload)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	return p.parseOne(body)
}

func (p *Provider[T]) Update(ctx context.Context, params resource.UpdateParams) (resource.DataResponse[T], error) {
	body, err := p.do(ctx, http.MethodPut, p.item(params.ID), params.Payload)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	return p.parseOne(body)
}

func (p *Provider[T]) DeleteOne(ctx context.Context, id resource.ID) (resource.DeleteOneResponse, error) {
	if _, err := p.do(ctx, http.MethodDelete, p.item(id), nil); err != nil {
		return resource.DeleteOneResponse{}, err
	}
	return resource.DeleteOneResponse{}, nil
}

func (p *Provider[T]) item(id resource.ID) string {
	return p.base + "/" + url.PathEscape(string(id))
}

func (p *Provider[T]) parseOne(body []byte) (resource.DataResponse[T], error) {
	v, err := shape.Parse[T](p.shape, body)
	if err != nil {
		return resource.DataResponse[T]{}, err
	}
	return resource.DataResponse[T]{Data: &v}, nil
}

// do performs one upstream call and returns the response body of a 2xx
// response. Other statuses fail with *resource.TransportError.
func (p *Provider[T]) do(ctx context.Context, method, u string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range p.cfg.headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := p.cfg.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	p.cfg.logger.DebugContext(ctx, "upstream request",
		slog.String("method", method),
		slog.String("url", u),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &resource.TransportError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, u, err)
	}
	return body, nil
}

// EncodeQuery encodes list parameters in a stable order: page, limit, q,
// then sort[i][field], sort[i][order] and filter[i][field],
// filter[i][operator], filter[i][value] for each entry.
//
// page is pageIndex+1, since pageIndex is zero-based. Neither page nor limit
// is sent when pagination mode is client or off.
func EncodeQuery(params resource.GetManyParams) string {
	var q query
	if pg := params.Pagination; pg != nil && pg.Mode != resource.PaginationClient && pg.Mode != resource.PaginationOff {
		if pg.PageIndex != nil {
			q.add("page", strconv.Itoa(*pg.PageIndex+1))
		}
		if pg.PageSize != nil {
			q.add("limit", strconv.Itoa(*pg.PageSize))
		}
	}
	if params.Search != "" {
		q.add("q", params.Search)
	}
	for i, s := range params.Sorters {
		q.add(fmt.Sprintf("sort[%d][field]", i), s.Field)
		q.add(fmt.Sprintf("sort[%d][order]", i), string(s.Order))
	}
	for i, f := range params.Filters {
		q.add(fmt.Sprintf("filter[%d][field]", i), f.Field)
		q.add(fmt.Sprintf("filter[%d][operator]", i), string(f.Operator))
		q.add(fmt.Sprintf("filter[%d][value]", i), formatValue(f.Value))
	}
	return q.String()
}

// query is an insertion-ordered query string. url.Values sorts keys on Encode.
type query struct {
	b strings.Builder
}

func (q *query) add(key, value string) {
	if q.b.Len() > 0 {
		q.b.WriteByte('&')
	}
	q.b.WriteString(url.QueryEscape(key))
	q.b.WriteByte('=')
	q.b.WriteString(url.QueryEscape(value))
}

func (q *query) String() string { return q.b.String() }

// formatValue renders a filter value; lists are comma-joined.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, len(v))
		for i, el := range v {
			parts[i] = formatValue(el)
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
