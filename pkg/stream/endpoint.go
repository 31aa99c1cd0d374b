package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Endpoint describes the request that opens a stream.
type Endpoint struct {
	Method string
	URL    string
	Body   []byte
	Header http.Header
}

func Get(url string) Endpoint {
	return Endpoint{Method: http.MethodGet, URL: url}
}

func Post(url string) Endpoint {
	return Endpoint{Method: http.MethodPost, URL: url}
}

// PostJSON returns a POST endpoint with v encoded as the JSON body.
func PostJSON(url string, v any) (Endpoint, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Endpoint{}, errors.Wrap(err, "encode stream request body")
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return Endpoint{Method: http.MethodPost, URL: url, Body: b, Header: h}, nil
}

// NewRequest builds the HTTP request bound to ctx, so cancelling ctx aborts
// both the connect and the body reads.
func (e Endpoint) NewRequest(ctx context.Context) (*http.Request, error) {
	method := e.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if e.Body != nil {
		body = bytes.NewReader(e.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build stream request")
	}
	for k, vs := range e.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}
