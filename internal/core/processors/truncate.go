package processors

import (
	"strings"

	"go.uber.org/zap"

	"llmbridge/internal/core"
)

// Truncator caps over-long answers at a limit, refusing to cut inside a
// fenced code block: a cut that would land inside a fence moves back to
// the fence start so the remaining text stays renderable.
type Truncator struct {
	limit int
}

// NewTruncator creates a truncation processor. A non-positive limit
// disables it.
func NewTruncator(limit int) *Truncator {
	return &Truncator{limit: limit}
}

func (t *Truncator) Name() string { return "truncate" }

func (t *Truncator) Priority() int { return 10 }

func (t *Truncator) Process(ctx *core.ChatContext, answer string) (string, error) {
	if t.limit <= 0 || len(answer) <= t.limit {
		return answer, nil
	}
	cut := safeCutIndex(answer, t.limit)
	if cut <= 0 {
		cut = t.limit
	}
	ctx.Log.Info("answer truncated",
		zap.String("request_id", ctx.RequestID),
		zap.Int("chars", len(answer)),
		zap.Int("kept", cut),
	)
	return strings.TrimRight(answer[:cut], " \n"), nil
}

// codeBlocks returns the [start, end) spans of ``` fenced blocks.
func codeBlocks(text string) [][2]int {
	const fence = "```"
	var blocks [][2]int
	i := 0
	for {
		start := strings.Index(text[i:], fence)
		if start == -1 {
			break
		}
		start += i
		end := strings.Index(text[start+len(fence):], fence)
		if end == -1 {
			break
		}
		end += start + 2*len(fence)
		blocks = append(blocks, [2]int{start, end})
		i = end
	}
	return blocks
}

// safeCutIndex returns limit, moved back to the start of any code block
// the cut would land inside.
func safeCutIndex(text string, limit int) int {
	if len(text) <= limit {
		return len(text)
	}
	for _, block := range codeBlocks(text) {
		if block[0] < limit && limit < block[1] {
			return block[0]
		}
	}
	return limit
}
