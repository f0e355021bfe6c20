package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"llmbridge/internal/core"
	"llmbridge/internal/core/processors"
	"llmbridge/internal/core/providers"
	"llmbridge/internal/core/registry"
	"llmbridge/internal/core/router"
	"llmbridge/internal/pkg/logger"
)

// Deps are the collaborators the facade exposes over HTTP.
type Deps struct {
	Registry *registry.Registry
	Router   *router.Router
	Executor *router.Executor
	Log      *logger.Logger
	// MaxAnswerChars caps answer length in the pipeline; <= 0 disables.
	MaxAnswerChars int
}

// New builds the HTTP facade with its route mux and the answer
// post-processing pipeline.
func New(addr string, deps Deps) *Server {
	pipeline := core.NewPipeline()
	pipeline.AddProcessor(processors.NewTruncator(deps.MaxAnswerChars))
	pipeline.AddProcessor(processors.NewAnswerLogger())

	h := &handlers{deps: deps, pipeline: pipeline}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("GET /v1/providers", h.listProviders)
	mux.HandleFunc("GET /v1/sessions", h.listSessions)
	mux.HandleFunc("POST /v1/sessions", h.createSession)
	mux.HandleFunc("POST /v1/sessions/{id}/rename", h.renameSession)
	mux.HandleFunc("POST /v1/chat", h.chat)

	return &Server{addr: addr, handler: mux, log: deps.Log.Named("server")}
}

type handlers struct {
	deps     Deps
	pipeline *core.Pipeline
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	w.Write(body)
}

// writeError maps adapter errors onto a degraded but friendly JSON reply
// instead of crashing the enclosing session.
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	var (
		transportErr  *providers.TransportError
		extractionErr *providers.ExtractionError
		missingField  *providers.MissingUserFieldError
	)
	switch {
	case errors.Is(err, providers.ErrCapabilityDisabled):
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "not supported by this provider"})
	case errors.As(err, &missingField):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  err.Error(),
			"prompt": missingField.Prompt,
		})
	case errors.As(err, &transportErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.As(err, &extractionErr):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

type providerSummary struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	AuthMode     string          `json:"auth_mode"`
	Capabilities map[string]bool `json:"capabilities"`
	Models       []modelSummary  `json:"models"`
}

type modelSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (h *handlers) listProviders(w http.ResponseWriter, r *http.Request) {
	out := make([]providerSummary, 0, h.deps.Registry.Len())
	for _, p := range h.deps.Registry.Providers() {
		summary := providerSummary{
			ID:           p.ID,
			Label:        p.Label,
			AuthMode:     p.Auth.Mode,
			Capabilities: p.Capabilities,
			Models:       make([]modelSummary, 0, len(p.Models)),
		}
		for _, m := range p.Models {
			summary.Models = append(summary.Models, modelSummary{ID: m.ID, Label: m.Label})
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.deps.Router.ListSessions(r.Context(), r.URL.Query().Get("model"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type createSessionRequest struct {
	Model  string `json:"model"`
	RoleID int64  `json:"role_id"`
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sessionID, err := h.deps.Router.CreateSession(r.Context(), req.RoleID, req.Model)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

type renameSessionRequest struct {
	Name   string `json:"name"`
	Model  string `json:"model"`
	RoleID int64  `json:"role_id"`
}

func (h *handlers) renameSession(w http.ResponseWriter, r *http.Request) {
	var req renameSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sessionID := r.PathValue("id")
	if err := h.deps.Router.RenameSession(r.Context(), sessionID, req.Name, req.RoleID, req.Model); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Model     string `json:"model"`
	RoleID    int64  `json:"role_id"`
}

func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	ctx := core.NewChatContext(r.Context(), h.deps.Log)
	ctx.Log.Info("chat turn",
		zap.String("request_id", ctx.RequestID),
		zap.String("session_id", req.SessionID),
		zap.String("model", req.Model),
	)

	text, err := h.deps.Executor.Send(ctx, req.SessionID, req.Content, req.Model, req.RoleID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	text, err = h.pipeline.Run(ctx, text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"answer":     text,
		"request_id": ctx.RequestID,
	})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty body")
	}
	dec := sonic.ConfigDefault.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
