package providers

import (
	"net/http"
	"testing"

	"github.com/tidwall/gjson"

	"llmbridge/internal/core/registry"
)

func TestBuildRequestPathSubstitution(t *testing.T) {
	ep := registry.Endpoint{Path: "/sessions/{session_id}/messages"}
	rctx := &Context{Values: map[string]any{"session_id": "s-42"}}

	req, err := BuildRequest(registry.EndpointSendMessage, ep, rctx)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Path != "/sessions/s-42/messages" {
		t.Errorf("expected substituted path, got %q", req.Path)
	}
	if req.Method != http.MethodPost {
		t.Errorf("expected POST default for send_message, got %s", req.Method)
	}
	if req.Body != nil {
		t.Errorf("expected no body without a template, got %s", req.Body)
	}
}

func TestBuildRequestMethodDefaults(t *testing.T) {
	req, err := BuildRequest(registry.EndpointListSessions, registry.Endpoint{Path: "/sessions"}, &Context{})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Method != http.MethodGet {
		t.Errorf("expected GET default for list_sessions, got %s", req.Method)
	}

	req, err = BuildRequest(registry.EndpointSendMessage, registry.Endpoint{Path: "/x", Method: "PUT"}, &Context{})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Method != "PUT" {
		t.Errorf("explicit method must win, got %s", req.Method)
	}
}

func TestBuildRequestUnknownSegmentStaysLiteral(t *testing.T) {
	req, err := BuildRequest(registry.EndpointSendMessage, registry.Endpoint{Path: "/a/{whatever}"}, &Context{})
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Path != "/a/{whatever}" {
		t.Errorf("unknown segment must stay literal, got %q", req.Path)
	}
}

func TestBuildRequestBodyAndHeaders(t *testing.T) {
	ep := registry.Endpoint{
		Path: "/chat",
		Request: registry.RequestSpec{
			Headers: map[string]string{"Cookie": "session=[[[tok]]]"},
			BodyTemplate: map[string]any{
				"content":  "{{content}}",
				"messages": "{{messages}}",
			},
		},
	}
	rctx := &Context{
		Values: map[string]any{
			"content": "hello",
			"messages": []any{
				map[string]any{"role": "user", "content": "hello"},
			},
		},
		UserField: func(key string) (string, error) { return "tok-value", nil },
	}

	req, err := BuildRequest(registry.EndpointSendMessage, ep, rctx)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Header.Get("Cookie") != "session=tok-value" {
		t.Errorf("header template not resolved: %q", req.Header.Get("Cookie"))
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected default content type, got %q", req.Header.Get("Content-Type"))
	}
	if got := gjson.GetBytes(req.Body, "content").String(); got != "hello" {
		t.Errorf("expected body content 'hello', got %q", got)
	}
	if got := gjson.GetBytes(req.Body, "messages.0.role").String(); got != "user" {
		t.Errorf("expected messages embedded verbatim, got %s", req.Body)
	}
}

func TestBuildRequestDropsEmptyModel(t *testing.T) {
	ep := registry.Endpoint{
		Path: "/chat",
		Request: registry.RequestSpec{
			BodyTemplate: map[string]any{
				"model":   "{{model}}",
				"content": "{{content}}",
			},
		},
	}
	rctx := &Context{Values: map[string]any{"content": "hi", "model": ""}}

	req, err := BuildRequest(registry.EndpointSendMessage, ep, rctx)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if gjson.GetBytes(req.Body, "model").Exists() {
		t.Errorf("empty model key must be dropped, body: %s", req.Body)
	}

	rctx.Values["model"] = "m1"
	req, err = BuildRequest(registry.EndpointSendMessage, ep, rctx)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if got := gjson.GetBytes(req.Body, "model").String(); got != "m1" {
		t.Errorf("set model must survive, got %q", got)
	}
}
