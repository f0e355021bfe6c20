package processors

import (
	"go.uber.org/zap"

	"llmbridge/internal/core"
)

// AnswerLogger records the size and latency of every completed answer.
type AnswerLogger struct{}

// NewAnswerLogger creates the logging processor.
func NewAnswerLogger() *AnswerLogger {
	return &AnswerLogger{}
}

func (l *AnswerLogger) Name() string { return "answer_logger" }

// Priority puts the logger last so it sees the final text.
func (l *AnswerLogger) Priority() int { return 100 }

func (l *AnswerLogger) Process(ctx *core.ChatContext, answer string) (string, error) {
	ctx.Log.Info("answer ready",
		zap.String("request_id", ctx.RequestID),
		zap.Int("chars", len(answer)),
		zap.Duration("elapsed", ctx.Elapsed()),
	)
	return answer, nil
}
