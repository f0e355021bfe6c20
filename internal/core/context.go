package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"llmbridge/internal/pkg/logger"
)

// ChatContext extends the standard context with per-turn fields shared by
// the router, the adapter and the post-processing pipeline.
type ChatContext struct {
	context.Context
	RequestID string
	UserID    string
	StartTime time.Time
	Log       *logger.Logger

	mu       sync.RWMutex
	metadata map[string]any
}

// NewChatContext creates a ChatContext with a fresh request id.
func NewChatContext(ctx context.Context, log *logger.Logger) *ChatContext {
	return &ChatContext{
		Context:   ctx,
		RequestID: uuid.NewString(),
		StartTime: time.Now(),
		Log:       log,
		metadata:  make(map[string]any),
	}
}

// SetMetadata sets a metadata value (thread-safe).
func (c *ChatContext) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// GetMetadata gets a metadata value (thread-safe).
func (c *ChatContext) GetMetadata(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}

// Elapsed returns time since the turn started.
func (c *ChatContext) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}
