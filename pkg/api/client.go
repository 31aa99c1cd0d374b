// Package api is a thin REST client for the arXiv Pulse server. Streaming
// endpoints are returned as stream.Endpoint values for a stream.Session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/pulse/pkg/stream"
)

const apiPrefix = "/api"

// StatusError is a non-2xx REST response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	if detail := detailOf(e.Body); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// detailOf extracts a FastAPI style {"detail": "..."} message when present.
func detailOf(body string) string {
	var d struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &d); err == nil {
		if s, ok := d.Detail.(string); ok {
			return s
		}
	}
	return strings.TrimSpace(body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	Config      *ConfigService
	Stats       *StatsService
	Papers      *PapersService
	Collections *CollectionsService
	Tasks       *TasksService
	Cache       *CacheService
	Export      *ExportService
	Chat        *ChatService
}

type ClientOption func(*Client)

// WithHTTPClient sets the client used for REST calls. Stream endpoints are
// executed by stream.Session with its own client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	c.Config = &ConfigService{c: c}
	c.Stats = &StatsService{c: c}
	c.Papers = &PapersService{c: c}
	c.Collections = &CollectionsService{c: c}
	c.Tasks = &TasksService{c: c}
	c.Cache = &CacheService{c: c}
	c.Export = &ExportService{c: c}
	c.Chat = &ChatService{c: c}
	return c
}

// Params is a query string builder. Empty values are dropped.
type Params map[string]string

func (p Params) Encode() string {
	vals := url.Values{}
	for k, v := range p {
		if v != "" {
			vals.Set(k, v)
		}
	}
	return vals.Encode()
}

func (c *Client) url(path string, q Params) string {
	u := c.BaseURL + apiPrefix + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// do performs a request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, q Params, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s %s", method, path)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path, q), rd)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("component", "api").Str("method", method).Str("path", path).Msg("request")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, q Params, body, out any) error {
	data, err := c.do(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func (c *Client) streamGet(path string, q Params) stream.Endpoint {
	return stream.Get(c.url(path, q))
}

func (c *Client) streamPost(path string, q Params) stream.Endpoint {
	return stream.Post(c.url(path, q))
}

func (c *Client) streamPostJSON(path string, body any) (stream.Endpoint, error) {
	return stream.PostJSON(c.url(path, nil), body)
}

// Object is an opaque JSON object for endpoints the client only relays.
type Object map[string]any
