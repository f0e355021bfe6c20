package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"llmbridge/internal/core/providers"
	"llmbridge/internal/core/registry"
	"llmbridge/internal/pkg/logger"
)

// Router resolves model overrides to providers and drives the generic
// adapter, supplying it with history and user field values from the
// store. The adapter itself never touches persistence.
type Router struct {
	registry        *registry.Registry
	adapters        map[string]*providers.Generic
	store           Store
	defaultProvider string
	log             *logger.Logger
}

// New builds one adapter per registered provider.
func New(reg *registry.Registry, store Store, defaultProvider string, timeout time.Duration, log *logger.Logger) (*Router, error) {
	adapters := make(map[string]*providers.Generic, reg.Len())
	for _, p := range reg.Providers() {
		adapter, err := providers.NewGeneric(p, timeout, log)
		if err != nil {
			return nil, err
		}
		adapters[p.ID] = adapter
	}
	if defaultProvider == "" {
		if ps := reg.Providers(); len(ps) > 0 {
			defaultProvider = ps[0].ID
		}
	}
	return &Router{
		registry:        reg,
		adapters:        adapters,
		store:           store,
		defaultProvider: defaultProvider,
		log:             log.Named("router"),
	}, nil
}

// SplitModel resolves a model override into (providerID, modelID).
// Accepted forms: "" (default provider), "provider", "model" (default
// provider), "provider:model".
func (r *Router) SplitModel(override string) (string, string) {
	if override == "" {
		return r.defaultProvider, ""
	}
	if !strings.Contains(override, ":") {
		if _, ok := r.registry.Provider(override); ok {
			return override, ""
		}
		return r.defaultProvider, override
	}
	providerID, modelID, _ := strings.Cut(override, ":")
	return providerID, modelID
}

// Supports reports whether the provider behind a model override declares
// the capability.
func (r *Router) Supports(override, capability string) bool {
	providerID, _ := r.SplitModel(override)
	p, ok := r.registry.Provider(providerID)
	return ok && p.Supports(capability)
}

// AuthMode returns the declared auth mode of the provider behind a model
// override.
func (r *Router) AuthMode(override string) string {
	providerID, _ := r.SplitModel(override)
	p, ok := r.registry.Provider(providerID)
	if !ok || p.Auth.Mode == "" {
		return "none"
	}
	return p.Auth.Mode
}

func (r *Router) adapter(providerID string) (*providers.Generic, error) {
	adapter, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", providerID)
	}
	return adapter, nil
}

// userFieldResolver builds the [[[field]]] lookup for one call. Scope
// "provider" ignores the role; scope "role" requires one.
func (r *Router) userFieldResolver(p *registry.Provider, roleID int64) func(string) (string, error) {
	return func(key string) (string, error) {
		field, ok := p.UserFields[key]
		if !ok {
			return "", &providers.UnknownUserFieldError{Provider: p.ID, Field: key}
		}
		scopedRole := int64(0)
		if field.Scope == registry.ScopeRole {
			if roleID == 0 {
				return "", &providers.MissingUserFieldError{Provider: p.ID, Field: key, Prompt: field.Prompt, Scope: field.Scope}
			}
			scopedRole = roleID
		}
		value, ok, err := r.store.GetProviderUserValue(p.ID, key, scopedRole)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &providers.MissingUserFieldError{Provider: p.ID, Field: key, Prompt: field.Prompt, Scope: field.Scope}
		}
		return value, nil
	}
}

// ListSessions lists backend sessions. A provider without the capability
// yields an empty list so callers can silently skip session UI.
func (r *Router) ListSessions(ctx context.Context, override string) ([]string, error) {
	providerID, _ := r.SplitModel(override)
	adapter, err := r.adapter(providerID)
	if err != nil {
		return nil, err
	}
	rctx := &providers.Context{UserField: r.userFieldResolver(adapter.Provider(), 0)}
	sessions, err := adapter.ListSessions(ctx, rctx)
	if errors.Is(err, providers.ErrCapabilityDisabled) {
		return []string{}, nil
	}
	return sessions, err
}

// CreateSession creates a backend session and returns its id.
func (r *Router) CreateSession(ctx context.Context, roleID int64, override string) (string, error) {
	providerID, _ := r.SplitModel(override)
	adapter, err := r.adapter(providerID)
	if err != nil {
		return "", err
	}
	rctx := &providers.Context{UserField: r.userFieldResolver(adapter.Provider(), roleID)}
	return adapter.CreateSession(ctx, rctx)
}

// RenameSession renames a backend session. Failures are logged and
// returned; callers treat them as non-fatal.
func (r *Router) RenameSession(ctx context.Context, sessionID, name string, roleID int64, override string) error {
	providerID, _ := r.SplitModel(override)
	adapter, err := r.adapter(providerID)
	if err != nil {
		return err
	}
	rctx := &providers.Context{
		Values: map[string]any{
			"session_id": sessionID,
			"name":       name,
		},
		UserField: r.userFieldResolver(adapter.Provider(), roleID),
	}
	if err := adapter.RenameSession(ctx, rctx); err != nil && !errors.Is(err, providers.ErrCapabilityDisabled) {
		r.log.Warn("rename session failed",
			zap.String("provider", providerID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// SendMessage routes one prompt to the resolved provider and returns the
// answer text. Streaming responses are drained here; an unclean stream
// end is logged and the partial text kept. Successful turns are recorded
// in the store.
func (r *Router) SendMessage(ctx context.Context, sessionID, content, override string, roleID int64) (string, error) {
	providerID, modelID := r.SplitModel(override)
	adapter, err := r.adapter(providerID)
	if err != nil {
		return "", err
	}
	p := adapter.Provider()

	if !p.Supports(registry.CapModelSelect) {
		modelID = ""
	}

	// The messages placeholder carries prior history (when enabled and
	// bounded by max_messages) plus the current turn; session-full
	// backends simply don't reference it.
	var messages []map[string]any
	if p.History.Enabled {
		history, err := r.store.ListConversationMessages(sessionID, p.History.MaxMessages)
		if err != nil {
			return "", fmt.Errorf("failed to load history: %w", err)
		}
		messages = make([]map[string]any, 0, len(history)+1)
		for _, m := range history {
			messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
		}
	}
	messages = append(messages, map[string]any{"role": "user", "content": content})

	rctx := &providers.Context{
		Values: map[string]any{
			"session_id": sessionID,
			"content":    content,
			"model":      modelID,
			"messages":   anySlice(messages),
		},
		UserField: r.userFieldResolver(p, roleID),
	}

	answer, err := adapter.SendMessage(ctx, rctx)
	if err != nil {
		return "", err
	}

	text := answer.Text
	if answer.Streaming() {
		text, err = answer.Stream.Collect()
		if err != nil {
			return "", err
		}
		if !answer.Stream.Clean() {
			r.log.Warn("stream ended without done sentinel",
				zap.String("provider", providerID),
				zap.String("session_id", sessionID),
				zap.Int("chars", len(text)),
			)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", &providers.TransportError{Provider: providerID, Message: "stream response empty"}
		}
	}

	if err := r.store.AddConversationMessage(sessionID, "user", content); err != nil {
		r.log.Warn("failed to record user message", zap.Error(err))
	}
	if err := r.store.AddConversationMessage(sessionID, "assistant", text); err != nil {
		r.log.Warn("failed to record assistant message", zap.Error(err))
	}

	r.log.Info("answer received",
		zap.String("provider", providerID),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// anySlice converts typed message maps into the []any form the template
// resolver recurses into.
func anySlice(messages []map[string]any) []any {
	out := make([]any, len(messages))
	for i, m := range messages {
		out[i] = m
	}
	return out
}
