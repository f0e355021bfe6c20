package providers

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"llmbridge/internal/core/registry"
)

// Request is a concrete request descriptor produced from an endpoint definition
// plus an invocation context. Building it performs no I/O.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

var pathSegmentRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// BuildRequest resolves an endpoint's templates against the invocation
// context and returns the request descriptor.
func BuildRequest(name string, ep registry.Endpoint, rctx *Context) (*Request, error) {
	method := ep.Method
	if method == "" {
		if name == registry.EndpointListSessions {
			method = http.MethodGet
		} else {
			method = http.MethodPost
		}
	}

	path := pathSegmentRe.ReplaceAllStringFunc(ep.Path, func(match string) string {
		key := pathSegmentRe.FindStringSubmatch(match)[1]
		if rctx != nil && rctx.Values != nil {
			if _, ok := rctx.Values[key]; ok {
				return rctx.Value(key)
			}
		}
		// Unknown segment stays literal; malformation surfaces at transport.
		return match
	})

	req := &Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
	}

	for key, tmpl := range ep.Request.Headers {
		resolved, err := Resolve(tmpl, rctx)
		if err != nil {
			return nil, err
		}
		value, ok := scalarString(resolved)
		if !ok {
			return nil, fmt.Errorf("header %s resolved to a non-scalar value", key)
		}
		req.Header.Set(key, value)
	}

	if len(ep.Request.BodyTemplate) > 0 {
		resolved, err := Resolve(map[string]any(ep.Request.BodyTemplate), rctx)
		if err != nil {
			return nil, err
		}
		body, err := sonic.Marshal(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		// A model key left empty by a gated-off model selection is dropped
		// rather than sent as "" or null.
		if m := gjson.GetBytes(body, "model"); m.Exists() && (m.Type == gjson.Null || m.String() == "") {
			body, err = sjson.DeleteBytes(body, "model")
			if err != nil {
				return nil, fmt.Errorf("failed to strip model field: %w", err)
			}
		}
		req.Body = body
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
	}

	return req, nil
}
