package core

import (
	"fmt"
	"sort"
)

// Pipeline holds the post-processors applied to every answer, in
// priority order.
type Pipeline struct {
	processors []Processor
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{processors: make([]Processor, 0)}
}

// AddProcessor adds a processor to the pipeline.
func (p *Pipeline) AddProcessor(processor Processor) {
	p.processors = append(p.processors, processor)
}

// Run passes the answer through every processor in priority order
// (lower number runs earlier). A processor error aborts the run.
func (p *Pipeline) Run(ctx *ChatContext, answer string) (string, error) {
	ordered := make([]Processor, len(p.processors))
	copy(ordered, p.processors)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	result := answer
	for _, processor := range ordered {
		var err error
		result, err = processor.Process(ctx, result)
		if err != nil {
			return "", fmt.Errorf("processor %s failed: %w", processor.Name(), err)
		}
	}
	return result, nil
}
