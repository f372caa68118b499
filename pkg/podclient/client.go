// Package podclient is a Go client for the plat-pod API.
package podclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error is an RFC 9457 problem returned by the API.
type Error struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Catalog bool   `json:"catalog"`
}

type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	DataDir     string   `json:"data_dir"`
	Catalog     string   `json:"catalog"`
	Products    int      `json:"products"`
	QueueLength int      `json:"queue_length"`
	StrictUnits bool     `json:"strict_units"`
	DB          bool     `json:"db"`
	Features    []string `json:"features"`
}

type ValidationError struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type Report struct {
	ID              string            `json:"id"`
	Source          string            `json:"source"`
	Valid           bool              `json:"valid"`
	Errors          []ValidationError `json:"errors"`
	Fatal           int               `json:"fatal"`
	Warnings        int               `json:"warnings"`
	FieldRequests   int               `json:"fieldRequests"`
	FieldChecksDone bool              `json:"fieldChecksDone"`
	StartedAt       time.Time         `json:"startedAt"`
}

// Polygon holds GeoJSON polygon coordinates.
type Polygon [][][2]float64

type LayoutRequest struct {
	Polygon     Polygon  `json:"polygon"`
	Angle       *float64 `json:"angle,omitempty"`
	Direction   string   `json:"direction,omitempty"`
	Scale       float64  `json:"scale"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	Units       string   `json:"units,omitempty"`
	PageSize    string   `json:"pageSize"`
	Orientation string   `json:"orientation,omitempty"`
	PageMargin  string   `json:"pageMargin,omitempty"`
}

type Offsets struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

type Label struct {
	Kind     string     `json:"kind"`
	Text     string     `json:"text"`
	Position [2]float64 `json:"position"`
	Angle    float64    `json:"angle"`
}

type Layout struct {
	Units          string  `json:"units"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	ReferenceScale float64 `json:"referenceScale"`
	Offsets        Offsets `json:"offsets"`
	Labels         []Label `json:"labels"`
	Page           Polygon `json:"page"`
	Corner         Polygon `json:"corner"`
	DataFrame      Polygon `json:"dataFrame"`
}

type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"`
}

type AddRequest struct {
	Product    string         `json:"product"`
	Custom     bool           `json:"custom,omitempty"`
	Polygon    Polygon        `json:"polygon,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Values     map[string]any `json:"values,omitempty"`
	Scale      *float64       `json:"scale,omitempty"`
	PageSize   *PageSize      `json:"pageSize,omitempty"`
}

// Product is a queued product. Attributes are left undecoded.
type Product struct {
	ID                 string          `json:"uuid"`
	Name               string          `json:"productName"`
	Type               string          `json:"type"`
	Template           string          `json:"template"`
	IsCustom           bool            `json:"isCustom"`
	Attributes         json.RawMessage `json:"attributes"`
	PageSize           *PageSize       `json:"pageSize,omitempty"`
	CalculatedPageSize *PageSize       `json:"calculatedPageSize,omitempty"`
	Layout             *Layout         `json:"layout,omitempty"`
}

type QueuePage struct {
	Data   []Product `json:"data"`
	Total  int       `json:"total"`
	Offset int       `json:"offset"`
	Limit  int       `json:"limit"`
}

type ExportName struct {
	ID           string `json:"uuid"`
	ProductName  string `json:"productName"`
	MapSheetName string `json:"mapSheetName"`
	CustomName   string `json:"customName"`
	Valid        bool   `json:"valid"`
	Duplicate    bool   `json:"duplicate"`
}

type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// Client calls a plat-pod server.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the server at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) Health(ctx context.Context) (*http.Response, Health, error) {
	var out Health
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, "", &out)
	return resp, out, err
}

func (c *Client) Info(ctx context.Context) (*http.Response, Info, error) {
	var out Info
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/info", nil, "", &out)
	return resp, out, err
}

// Validate sends a catalog document for validation, waiting up to wait
// for extent layer field checks.
func (c *Client) Validate(ctx context.Context, source string, catalog []byte, wait time.Duration) (*http.Response, Report, error) {
	q := url.Values{}
	q.Set("source", source)
	q.Set("waitSeconds", strconv.FormatFloat(wait.Seconds(), 'f', -1, 64))
	var out Report
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/validate?"+q.Encode(), bytes.NewReader(catalog), "application/yaml", &out)
	return resp, out, err
}

func (c *Client) LastValidation(ctx context.Context) (*http.Response, Report, error) {
	var out Report
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/validation", nil, "", &out)
	return resp, out, err
}

func (c *Client) Layout(ctx context.Context, req LayoutRequest) (*http.Response, Layout, error) {
	var out Layout
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/layout", req, &out)
	return resp, out, err
}

func (c *Client) ListQueue(ctx context.Context, offset, limit int) (*http.Response, QueuePage, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var out QueuePage
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/queue?"+q.Encode(), nil, "", &out)
	return resp, out, err
}

func (c *Client) AddToQueue(ctx context.Context, req AddRequest) (*http.Response, Product, error) {
	var out Product
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/queue", req, &out)
	return resp, out, err
}

func (c *Client) GetQueueItem(ctx context.Context, id string) (*http.Response, Product, error) {
	var out Product
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/queue/"+url.PathEscape(id), nil, "", &out)
	return resp, out, err
}

func (c *Client) UpdateQueueItem(ctx context.Context, id string, values map[string]any) (*http.Response, Product, error) {
	var out Product
	resp, err := c.doJSON(ctx, http.MethodPut, "/api/v1/queue/"+url.PathEscape(id), map[string]any{"values": values}, &out)
	return resp, out, err
}

func (c *Client) DeleteQueueItem(ctx context.Context, id string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, "/api/v1/queue/"+url.PathEscape(id), nil, "", nil)
}

func (c *Client) ExportNames(ctx context.Context) (*http.Response, []ExportName, error) {
	var out []ExportName
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/queue/names", nil, "", &out)
	return resp, out, err
}

// Export returns the export parameters of a queued product; option is
// "Preview" or "Export".
func (c *Client) Export(ctx context.Context, id, option string) (*http.Response, map[string]any, error) {
	var out map[string]any
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/queue/"+url.PathEscape(id)+"/export?option="+url.QueryEscape(option), nil, "", &out)
	return resp, out, err
}

func (c *Client) Query(ctx context.Context, query string) (*http.Response, QueryResult, error) {
	var out QueryResult
	resp, err := c.doJSON(ctx, http.MethodPost, "/api/v1/query", map[string]string{"query": query}, &out)
	return resp, out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, bytes.NewReader(b), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return resp, apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}
