package providers

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"llmbridge/internal/core/registry"
	"llmbridge/internal/core/security"
	"llmbridge/internal/pkg/logger"
)

// Generic implements all four session operations for any provider that
// can be described declaratively. It holds no per-call state; a single
// instance serves concurrent chat turns.
type Generic struct {
	provider *registry.Provider
	client   *http.Client
	redactor *security.Redactor
	log      *logger.Logger
}

// Answer is the result of a send_message call: either fully materialized
// text or a lazy fragment stream the caller pulls from.
type Answer struct {
	Text   string
	Stream *Stream
}

// Streaming reports whether the caller must drain Stream.
func (a *Answer) Streaming() bool { return a.Stream != nil }

// NewGeneric creates an adapter for the given provider. The HTTP client
// is provider-owned: timeout from configuration, root CAs replaced when
// the provider declares a tls.ca_cert_path.
func NewGeneric(p *registry.Provider, timeout time.Duration, log *logger.Logger) (*Generic, error) {
	client := &http.Client{Timeout: timeout}

	if p.TLS.CACertPath != "" {
		pem, err := os.ReadFile(p.TLS.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("provider %s: failed to read CA cert: %w", p.ID, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("provider %s: no certificates in %s", p.ID, p.TLS.CACertPath)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	return &Generic{
		provider: p,
		client:   client,
		redactor: security.NewRedactor(),
		log:      log.Named("adapter").With(zap.String("provider", p.ID)),
	}, nil
}

// ID returns the provider identifier.
func (g *Generic) ID() string { return g.provider.ID }

// Provider returns the immutable provider definition.
func (g *Generic) Provider() *registry.Provider { return g.provider }

// Supports reports whether the named capability is enabled.
func (g *Generic) Supports(capability string) bool {
	return g.provider.Supports(capability)
}

// ListSessions fetches the backend's session ids. A provider without the
// list_sessions capability yields ErrCapabilityDisabled without touching
// the network.
func (g *Generic) ListSessions(ctx context.Context, rctx *Context) ([]string, error) {
	if !g.Supports(registry.CapListSessions) {
		return nil, ErrCapabilityDisabled
	}
	ep, ok := g.provider.Endpoint(registry.EndpointListSessions)
	if !ok {
		return nil, fmt.Errorf("provider %s: list_sessions endpoint is not configured", g.provider.ID)
	}
	req, err := BuildRequest(registry.EndpointListSessions, ep, rctx)
	if err != nil {
		return nil, err
	}
	body, err := g.do(ctx, registry.EndpointListSessions, req)
	if err != nil {
		return nil, err
	}
	return ExtractList(body, ep.Response.ListPath, ep.Response.ItemIDPath)
}

// CreateSession asks the backend for a fresh session and returns its id.
func (g *Generic) CreateSession(ctx context.Context, rctx *Context) (string, error) {
	if !g.Supports(registry.CapCreateSession) {
		return "", ErrCapabilityDisabled
	}
	ep, ok := g.provider.Endpoint(registry.EndpointCreateSession)
	if !ok {
		return "", fmt.Errorf("provider %s: create_session endpoint is not configured", g.provider.ID)
	}
	req, err := BuildRequest(registry.EndpointCreateSession, ep, rctx)
	if err != nil {
		return "", err
	}
	body, err := g.do(ctx, registry.EndpointCreateSession, req)
	if err != nil {
		return "", err
	}
	sessionID, err := ExtractString(body, ep.Response.SessionIDPath)
	if err != nil {
		return "", &SessionCreationError{Provider: g.provider.ID, Err: err}
	}
	if sessionID == "" {
		return "", &SessionCreationError{
			Provider: g.provider.ID,
			Err:      &ExtractionError{Path: ep.Response.SessionIDPath, Snippet: snippet(body)},
		}
	}
	return sessionID, nil
}

// SendMessage sends a prompt. With a streaming response rule the returned
// Answer carries a lazy Stream the caller drains (and may abandon early
// via Close); otherwise Text is fully materialized.
func (g *Generic) SendMessage(ctx context.Context, rctx *Context) (*Answer, error) {
	ep, ok := g.provider.Endpoint(registry.EndpointSendMessage)
	if !ok {
		return nil, fmt.Errorf("provider %s: send_message endpoint is not configured", g.provider.ID)
	}
	req, err := BuildRequest(registry.EndpointSendMessage, ep, rctx)
	if err != nil {
		return nil, err
	}

	if ep.Response.Stream {
		resp, err := g.doRaw(ctx, registry.EndpointSendMessage, req)
		if err != nil {
			return nil, err
		}
		return &Answer{Stream: NewStream(resp.Body, ep.Response)}, nil
	}

	body, err := g.do(ctx, registry.EndpointSendMessage, req)
	if err != nil {
		return nil, err
	}
	content, err := ExtractString(body, ep.Response.ContentPath)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, &ExtractionError{Path: ep.Response.ContentPath, Snippet: snippet(body)}
	}
	return &Answer{Text: content}, nil
}

// RenameSession renames a backend session. The response carries no
// contract; failures are reported for the caller to log, renaming is
// cosmetic and non-fatal to the conversation.
func (g *Generic) RenameSession(ctx context.Context, rctx *Context) error {
	if !g.Supports(registry.CapRenameSession) {
		return ErrCapabilityDisabled
	}
	ep, ok := g.provider.Endpoint(registry.EndpointRenameSession)
	if !ok {
		return fmt.Errorf("provider %s: rename_session endpoint is not configured", g.provider.ID)
	}
	req, err := BuildRequest(registry.EndpointRenameSession, ep, rctx)
	if err != nil {
		return err
	}
	_, err = g.do(ctx, registry.EndpointRenameSession, req)
	return err
}

// do executes the request and returns the full response body.
func (g *Generic) do(ctx context.Context, endpoint string, req *Request) ([]byte, error) {
	resp, err := g.doRaw(ctx, endpoint, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: g.provider.ID, Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	return body, nil
}

// doRaw executes the request and returns the open response after status
// checking. The caller owns resp.Body.
func (g *Generic) doRaw(ctx context.Context, endpoint string, req *Request) (*http.Response, error) {
	url := g.provider.BaseURL + req.Path

	var reader io.Reader
	if req.Body != nil {
		reader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	g.log.Info("request",
		zap.String("endpoint", endpoint),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Any("headers", g.redactor.MaskHeaders(req.Header)),
	)
	if g.log.Core().Enabled(zap.DebugLevel) && req.Body != nil {
		var payload map[string]any
		if err := sonic.Unmarshal(req.Body, &payload); err == nil {
			g.log.Debug("request payload", zap.Any("payload", g.redactor.MaskMap(payload)))
		}
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Provider: g.provider.ID, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &TransportError{
			Provider: g.provider.ID,
			Status:   resp.StatusCode,
			Message:  backendErrorMessage(body),
		}
	}
	return resp, nil
}

// backendErrorMessage probes an error body for a human message, falling
// back to the raw (truncated) body.
func backendErrorMessage(body []byte) string {
	root, err := sonic.Get(body)
	if err == nil {
		if msg, err := root.Get("error").Get("message").String(); err == nil && msg != "" {
			return msg
		}
		if msg, err := root.Get("message").String(); err == nil && msg != "" {
			return msg
		}
	}
	return snippet(body)
}
