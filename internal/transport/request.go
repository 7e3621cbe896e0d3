// Package transport moves service calls to the zpu API over an ordered list
// of strategies (local gateway, direct API, canned payloads).
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Op names a logical operation; each strategy maps it onto its own route.
type Op string

// Route is the HTTP shape of an Op for one base URL. Params that appear as
// {name} in Path are substituted; all others become query parameters.
// BodyAsQuery moves the top-level fields of a JSON object body into the
// query string and sends no body.
type Route struct {
	Method      string
	Path        string
	BodyAsQuery bool
}

// RouteTable maps operations to routes.
type RouteTable map[Op]Route

var ErrUnknownOp = errors.New("operation has no route")

// Request is a strategy-independent call.
type Request struct {
	Op     Op
	Params map[string]string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool { return r != nil && r.StatusCode >= 200 && r.StatusCode < 300 }

// NewJSONRequest marshals body (when non-nil) and sets the JSON content type.
func NewJSONRequest(op Op, params map[string]string, body any) (*Request, error) {
	req := &Request{Op: op, Params: params, Header: http.Header{}}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		req.Body = b
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Resolve builds method, full URL and body for req against baseURL.
func (t RouteTable) Resolve(baseURL string, req *Request) (string, string, []byte, error) {
	route, ok := t[req.Op]
	if !ok {
		return "", "", nil, fmt.Errorf("%w: %s", ErrUnknownOp, req.Op)
	}

	query := url.Values{}
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	path := route.Path
	for name, value := range req.Params {
		placeholder := "{" + name + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(value))
			continue
		}
		query.Set(name, value)
	}
	if strings.Contains(path, "{") {
		return "", "", nil, fmt.Errorf("route %s: unfilled path parameter in %q", req.Op, path)
	}

	body := req.Body
	if route.BodyAsQuery && len(body) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return "", "", nil, fmt.Errorf("route %s: body is not a JSON object: %w", req.Op, err)
		}
		for k, v := range fields {
			switch tv := v.(type) {
			case string:
				query.Set(k, tv)
			case nil:
			default:
				b, _ := json.Marshal(tv)
				query.Set(k, string(b))
			}
		}
		body = nil
	}

	full := strings.TrimRight(baseURL, "/") + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return route.Method, full, body, nil
}
