package router

import (
	"context"
	"time"

	"go.uber.org/zap"

	"llmbridge/internal/pkg/logger"
)

// Executor retries failed sends with linear backoff. The retry count is
// pure configuration; 0 means a single attempt.
type Executor struct {
	router  *Router
	retries int
	log     *logger.Logger
}

// NewExecutor wraps a router with a retry budget.
func NewExecutor(r *Router, retries int, log *logger.Logger) *Executor {
	if retries < 0 {
		retries = 0
	}
	return &Executor{router: r, retries: retries, log: log.Named("executor")}
}

// Send routes one prompt, retrying on failure up to the configured count.
func (e *Executor) Send(ctx context.Context, sessionID, content, override string, roleID int64) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		text, err := e.router.SendMessage(ctx, sessionID, content, override, roleID)
		if err == nil {
			return text, nil
		}
		lastErr = err
		e.log.Error("send failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if attempt == e.retries {
			break
		}
		backoff := 500 * time.Millisecond * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	return "", lastErr
}
