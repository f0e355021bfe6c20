package registry

// Endpoint names a provider may configure. send_message is the only
// mandatory one; the rest are gated by the matching capability flag.
const (
	EndpointListSessions  = "list_sessions"
	EndpointCreateSession = "create_session"
	EndpointSendMessage   = "send_message"
	EndpointRenameSession = "rename_session"
)

// Capability constants
const (
	CapListSessions  = "list_sessions"
	CapCreateSession = "create_session"
	CapRenameSession = "rename_session"
	CapModelSelect   = "model_select"
)

// User field scopes
const (
	ScopeProvider = "provider"
	ScopeRole     = "role"
)

// Provider is the immutable description of one backend's API surface.
// Loaded once at startup from a JSON document; read-only afterwards, so
// instances are safe to share between goroutines without locking.
type Provider struct {
	// ID is the unique identifier for this provider
	ID string `json:"id"`
	// Label is the human-readable provider name
	Label string `json:"label"`
	// BaseURL is the base URL for the backend (e.g., "https://api.example.com/v1")
	BaseURL string `json:"base_url"`
	// TLS holds the optional trust override
	TLS TLSConfig `json:"tls"`
	// Adapter selects the adapter implementation; only "generic" is supported
	Adapter string `json:"adapter"`
	// Capabilities maps capability name to enabled flag
	Capabilities map[string]bool `json:"capabilities"`
	// Auth carries the declared auth mode (informational)
	Auth AuthConfig `json:"auth"`
	// UserFields maps field name to its collection prompt and scope
	UserFields map[string]UserField `json:"user_fields"`
	// Endpoints maps endpoint name to its definition
	Endpoints map[string]Endpoint `json:"endpoints"`
	// History controls caller-side conversation history inclusion
	History HistoryConfig `json:"history"`
	// Models is the ordered list of selectable models
	Models []Model `json:"models"`
}

// Supports reports whether the named capability is enabled.
func (p *Provider) Supports(capability string) bool {
	return p.Capabilities[capability]
}

// Endpoint returns the named endpoint definition, if configured.
func (p *Provider) Endpoint(name string) (Endpoint, bool) {
	ep, ok := p.Endpoints[name]
	return ep, ok
}

// TLSConfig is the trust override for a provider's transport.
type TLSConfig struct {
	// CACertPath points to a PEM CA bundle replacing the system pool
	CACertPath string `json:"ca_cert_path"`
}

// AuthConfig declares how the backend authenticates. The mode is carried
// for the calling layer; the adapter does not implement auth schemes.
type AuthConfig struct {
	Mode string `json:"mode"`
}

// UserField is a value collected from the end user before endpoints
// referencing it can be called.
type UserField struct {
	// Prompt is shown to the user when the value is collected
	Prompt string `json:"prompt"`
	// Scope is "provider" (one value per provider) or "role" (per role)
	Scope string `json:"scope"`
}

// HistoryConfig controls how much prior conversation the caller feeds
// into the messages placeholder.
type HistoryConfig struct {
	Enabled bool `json:"enabled"`
	// MaxMessages bounds the history slice; 0 means unbounded
	MaxMessages int `json:"max_messages"`
}

// Model is one selectable model descriptor.
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ProviderModel pairs a model with the provider that owns it.
type ProviderModel struct {
	ProviderID string
	ModelID    string
	Label      string
}

// FullID returns the "<provider>:<model>" form used as a model override.
func (m ProviderModel) FullID() string {
	return m.ProviderID + ":" + m.ModelID
}

// LabelFull returns "<provider> / <label>" for display.
func (m ProviderModel) LabelFull() string {
	return m.ProviderID + " / " + m.Label
}

// Endpoint describes one HTTP operation a provider exposes.
type Endpoint struct {
	// Method is the HTTP method; defaults depend on the endpoint
	Method string `json:"method"`
	// Path is the path template; may contain {session_id} style segments
	Path string `json:"path"`
	// Request holds the body and header templates
	Request RequestSpec `json:"request"`
	// Response declares how to locate the meaningful value in the reply
	Response ResponseRule `json:"response"`
}

// RequestSpec holds the request templates of an endpoint.
type RequestSpec struct {
	// BodyTemplate is arbitrary nested JSON with embedded placeholders
	BodyTemplate map[string]any `json:"body_template"`
	// Headers maps header name to a (possibly templated) value
	Headers map[string]string `json:"headers"`
}

// ResponseRule declares where the meaningful value lives in a response
// body or stream. Exactly one extraction mode applies per endpoint:
// session id path, list extraction, content path, or streaming.
type ResponseRule struct {
	SessionIDPath string `json:"session_id_path"`
	ListPath      string `json:"list_path"`
	ItemIDPath    string `json:"item_id_path"`
	ContentPath   string `json:"content_path"`

	Stream            bool   `json:"stream"`
	StreamLinePrefix  string `json:"stream_line_prefix"`
	StreamDoneValue   string `json:"stream_done_value"`
	StreamContentPath string `json:"stream_content_path"`
	// StreamDonePath optionally names a per-event flag that ends the stream
	StreamDonePath string `json:"stream_done_path"`
}
