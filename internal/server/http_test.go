package server

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"llmbridge/internal/core/registry"
	"llmbridge/internal/core/router"
	"llmbridge/internal/pkg/logger"
)

// newTestFacade wires a full facade around a stub backend and returns
// the facade's test server.
func newTestFacade(t *testing.T, backend http.Handler) *httptest.Server {
	return newTestFacadeWithLimit(t, backend, 0)
}

func newTestFacadeWithLimit(t *testing.T, backend http.Handler, maxAnswerChars int) *httptest.Server {
	t.Helper()
	bts := httptest.NewServer(backend)
	t.Cleanup(bts.Close)

	doc := fmt.Sprintf(`{
	  "id": "stub",
	  "label": "Stub",
	  "base_url": %q,
	  "capabilities": {"list_sessions": true, "create_session": true, "rename_session": true, "model_select": true},
	  "models": [{"id": "m1", "label": "Model One"}],
	  "endpoints": {
	    "list_sessions": {
	      "path": "/sessions",
	      "response": {"list_path": "items", "item_id_path": "id"}
	    },
	    "create_session": {
	      "method": "POST",
	      "path": "/sessions",
	      "response": {"session_id_path": "id"}
	    },
	    "rename_session": {
	      "method": "POST",
	      "path": "/sessions/{session_id}/rename",
	      "request": {"body_template": {"name": "{{name}}"}}
	    },
	    "send_message": {
	      "method": "POST",
	      "path": "/chat",
	      "request": {"body_template": {"model": "{{model}}", "content": "{{content}}"}},
	      "response": {"content_path": "reply"}
	    }
	  }
	}`, bts.URL)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stub.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write provider doc: %v", err)
	}

	log := logger.Wrap(zap.NewNop())
	reg, err := registry.Load(dir, log)
	if err != nil {
		t.Fatalf("registry load failed: %v", err)
	}
	rt, err := router.New(reg, router.NewMemoryStore(), "stub", 10*time.Second, log)
	if err != nil {
		t.Fatalf("router init failed: %v", err)
	}
	srv := New(":0", Deps{
		Registry:       reg,
		Router:         rt,
		Executor:       router.NewExecutor(rt, 0, log),
		Log:            log,
		MaxAnswerChars: maxAnswerChars,
	})

	fts := httptest.NewServer(srv.Handler())
	t.Cleanup(fts.Close)
	return fts
}

func getJSON(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func postJSON(t *testing.T, url, payload string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	fts := newTestFacade(t, http.NotFoundHandler())
	status, body := getJSON(t, fts.URL+"/health")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if gjson.GetBytes(body, "status").String() != "ok" {
		t.Errorf("unexpected health body: %s", body)
	}
}

func TestListProviders(t *testing.T) {
	fts := newTestFacade(t, http.NotFoundHandler())
	status, body := getJSON(t, fts.URL+"/v1/providers")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	providers := gjson.GetBytes(body, "providers").Array()
	if len(providers) != 1 || providers[0].Get("id").String() != "stub" {
		t.Fatalf("unexpected providers body: %s", body)
	}
	if providers[0].Get("models.0.label").String() != "Model One" {
		t.Errorf("model labels missing: %s", body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":"s-1"},{"id":"s-2"}]}`))
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"s-new"}`))
	})
	var renamed string
	mux.HandleFunc("POST /sessions/{session_id}/rename", func(w http.ResponseWriter, r *http.Request) {
		renamed = r.PathValue("session_id")
		w.Write([]byte(`{}`))
	})
	fts := newTestFacade(t, mux)

	status, body := getJSON(t, fts.URL+"/v1/sessions?model=stub")
	if status != http.StatusOK {
		t.Fatalf("list sessions: expected 200, got %d: %s", status, body)
	}
	sessions := gjson.GetBytes(body, "sessions").Array()
	if len(sessions) != 2 || sessions[0].String() != "s-1" {
		t.Fatalf("unexpected sessions: %s", body)
	}

	status, body = postJSON(t, fts.URL+"/v1/sessions", `{"model":"stub"}`)
	if status != http.StatusOK {
		t.Fatalf("create session: expected 200, got %d: %s", status, body)
	}
	if gjson.GetBytes(body, "session_id").String() != "s-new" {
		t.Fatalf("unexpected create body: %s", body)
	}

	status, _ = postJSON(t, fts.URL+"/v1/sessions/s-new/rename", `{"name":"My chat"}`)
	if status != http.StatusOK {
		t.Fatalf("rename: expected 200, got %d", status)
	}
	if renamed != "s-new" {
		t.Errorf("rename hit wrong session: %q", renamed)
	}
}

func TestChatRoundTrip(t *testing.T) {
	var gotContent, gotModel string
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		gotContent = gjson.GetBytes(payload, "content").String()
		gotModel = gjson.GetBytes(payload, "model").String()
		w.Write([]byte(`{"reply":"  hello from stub  "}`))
	})
	fts := newTestFacade(t, backend)

	status, body := postJSON(t, fts.URL+"/v1/chat", `{"session_id":"s1","content":"hi","model":"stub:m1"}`)
	if status != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d: %s", status, body)
	}
	if gjson.GetBytes(body, "answer").String() != "  hello from stub  " {
		t.Errorf("unexpected answer: %s", body)
	}
	if gjson.GetBytes(body, "request_id").String() == "" {
		t.Error("request_id missing from chat reply")
	}
	if gotContent != "hi" || gotModel != "m1" {
		t.Errorf("backend saw content=%q model=%q", gotContent, gotModel)
	}
}

func TestChatTruncatesLongAnswers(t *testing.T) {
	long := strings.Repeat("a", 500)
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"reply":%q}`, long)
	})
	fts := newTestFacadeWithLimit(t, backend, 64)

	status, body := postJSON(t, fts.URL+"/v1/chat", `{"session_id":"s1","content":"hi"}`)
	if status != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d: %s", status, body)
	}
	answer := gjson.GetBytes(body, "answer").String()
	if len(answer) > 64 {
		t.Errorf("answer not capped at 64 chars, got %d", len(answer))
	}
	if !strings.HasPrefix(answer, "aaaa") {
		t.Errorf("truncation must keep the head of the answer, got %q", answer)
	}
}

func TestChatRejectsEmptyContent(t *testing.T) {
	fts := newTestFacade(t, http.NotFoundHandler())
	status, _ := postJSON(t, fts.URL+"/v1/chat", `{"session_id":"s1","content":"   "}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", status)
	}
}

func TestChatBackendFailureMapsToBadGateway(t *testing.T) {
	backend := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"model overloaded"}}`, http.StatusServiceUnavailable)
	})
	fts := newTestFacade(t, backend)

	status, body := postJSON(t, fts.URL+"/v1/chat", `{"session_id":"s1","content":"hi"}`)
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", status, body)
	}
	if !strings.Contains(gjson.GetBytes(body, "error").String(), "model overloaded") {
		t.Errorf("backend error message not surfaced: %s", body)
	}
}
