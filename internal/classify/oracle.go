package classify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultOracleTimeout = 60 * time.Second

// Generator is the interface for text generation via Ollama.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// TopicOracle asks a local LLM whether a paragraph mentions the configured
// research topic.
type TopicOracle struct {
	client  Generator
	model   string
	topic   string
	timeout time.Duration
}

// NewTopicOracle creates a TopicOracle using the given generation client and
// model. A timeout of zero or less falls back to 60 seconds.
func NewTopicOracle(client Generator, model, topic string, timeout time.Duration) *TopicOracle {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &TopicOracle{client: client, model: model, topic: topic, timeout: timeout}
}

func buildPrompt(topic, paragraph string) string {
	return fmt.Sprintf(`Question: Does the following paragraph contain information about %s? Consider any proteins, enzymes, kinases, or molecular targets mentioned in relation to the topic. Answer only Yes or No.

Paragraph: %s

Answer:`, topic, paragraph)
}

// Relevant sends the paragraph to the model and reads its verdict. A reply
// counts as relevant only when it starts with "yes" after trimming and
// lowercasing. Every call is bounded by the oracle timeout so a stuck
// generation cannot stall the scan.
func (o *TopicOracle) Relevant(ctx context.Context, paragraph string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Generate(ctx, o.model, buildPrompt(o.topic, paragraph))
	if err != nil {
		return false, fmt.Errorf("querying %s: %w", o.model, err)
	}
	answer := strings.ToLower(strings.TrimSpace(resp))
	return strings.HasPrefix(answer, "yes"), nil
}
