package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"llmbridge/internal/pkg/logger"
)

// ConfigError reports a malformed provider document. It is fatal for that
// provider only; other provider files keep loading.
type ConfigError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: field %s: %v", e.Provider, e.Field, e.Err)
	}
	return fmt.Sprintf("provider %s: field %s is invalid", e.Provider, e.Field)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var knownEndpoints = map[string]bool{
	EndpointListSessions:  true,
	EndpointCreateSession: true,
	EndpointSendMessage:   true,
	EndpointRenameSession: true,
}

// Registry holds all loaded providers plus the flattened model list.
type Registry struct {
	providers map[string]*Provider
	order     []string
	models    []ProviderModel
}

// Provider returns the provider with the given id.
func (r *Registry) Provider(id string) (*Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Providers returns all providers in load order.
func (r *Registry) Providers() []*Provider {
	out := make([]*Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}

// Models returns every model of every provider, preserving load order.
func (r *Registry) Models() []ProviderModel {
	return r.models
}

// Len returns the number of loaded providers.
func (r *Registry) Len() int { return len(r.order) }

// Load reads every *.json document in dir and builds the registry.
// A malformed document is logged and skipped; it never prevents other
// providers from loading. A missing directory yields an empty registry.
func Load(dir string, log *logger.Logger) (*Registry, error) {
	reg := &Registry{providers: make(map[string]*Provider)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("providers dir not found", zap.String("dir", dir))
			return reg, nil
		}
		return nil, fmt.Errorf("failed to read providers dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		provider, err := parseProviderFile(path, log)
		if err != nil {
			log.Error("failed to load provider config",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		if _, dup := reg.providers[provider.ID]; dup {
			log.Error("duplicate provider id",
				zap.String("id", provider.ID),
				zap.String("path", path),
			)
			continue
		}
		reg.providers[provider.ID] = provider
		reg.order = append(reg.order, provider.ID)
		for _, m := range provider.Models {
			reg.models = append(reg.models, ProviderModel{
				ProviderID: provider.ID,
				ModelID:    m.ID,
				Label:      m.Label,
			})
		}
	}

	log.Info("loaded providers",
		zap.Int("providers", reg.Len()),
		zap.Int("models", len(reg.models)),
		zap.String("dir", dir),
	)
	return reg, nil
}

// parseProviderFile reads and validates one provider document.
func parseProviderFile(path string, log *logger.Logger) (*Provider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var p Provider
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if p.ID == "" {
		return nil, &ConfigError{Provider: filepath.Base(path), Field: "id", Err: fmt.Errorf("missing")}
	}
	if p.Label == "" {
		p.Label = p.ID
	}
	if p.BaseURL == "" {
		return nil, &ConfigError{Provider: p.ID, Field: "base_url", Err: fmt.Errorf("missing")}
	}
	if p.Adapter == "" {
		p.Adapter = "generic"
	}
	if p.Adapter != "generic" {
		return nil, &ConfigError{Provider: p.ID, Field: "adapter", Err: fmt.Errorf("unsupported adapter %q", p.Adapter)}
	}
	if p.Capabilities == nil {
		p.Capabilities = make(map[string]bool)
	}
	if p.Auth.Mode == "" {
		p.Auth.Mode = "none"
	}

	for name, ep := range p.Endpoints {
		if !knownEndpoints[name] {
			return nil, &ConfigError{Provider: p.ID, Field: "endpoints." + name, Err: fmt.Errorf("unknown endpoint")}
		}
		if ep.Path == "" {
			return nil, &ConfigError{Provider: p.ID, Field: "endpoints." + name + ".path", Err: fmt.Errorf("missing")}
		}
	}
	if _, ok := p.Endpoints[EndpointSendMessage]; !ok {
		return nil, &ConfigError{Provider: p.ID, Field: "endpoints.send_message", Err: fmt.Errorf("missing")}
	}

	fields := make(map[string]UserField, len(p.UserFields))
	for key, field := range p.UserFields {
		if field.Prompt == "" {
			continue
		}
		if field.Scope == "" {
			field.Scope = ScopeProvider
		}
		if field.Scope != ScopeProvider && field.Scope != ScopeRole {
			log.Warn("invalid user field scope, using provider",
				zap.String("provider", p.ID),
				zap.String("field", key),
				zap.String("scope", field.Scope),
			)
			field.Scope = ScopeProvider
		}
		fields[key] = field
	}
	p.UserFields = fields

	if p.History.MaxMessages < 0 {
		p.History.MaxMessages = 0
	}

	models := p.Models[:0]
	for _, m := range p.Models {
		if m.ID == "" {
			log.Error("provider has model without id",
				zap.String("provider", p.ID),
				zap.String("path", path),
			)
			continue
		}
		if m.Label == "" {
			m.Label = m.ID
		}
		models = append(models, m)
	}
	p.Models = models

	return &p, nil
}

// ModelLabel returns the display label for a model, preferring the
// provider label when available.
func ModelLabel(m ProviderModel, p *Provider) string {
	if p != nil && p.Label != "" {
		return p.Label + " / " + m.Label
	}
	return m.LabelFull()
}
