package core

// Processor post-processes a final answer text before it is handed back
// to the calling layer.
type Processor interface {
	// Name returns the processor name
	Name() string
	// Priority returns the execution priority (lower = earlier)
	Priority() int
	// Process transforms the answer text
	Process(ctx *ChatContext, answer string) (string, error)
}
