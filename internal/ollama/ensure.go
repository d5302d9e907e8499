package ollama

import (
	"context"
	"fmt"
	"io"
	"time"
)

// warmupTimeout bounds the warm-up generation. Cold model load can take a
// while, but an unresponsive server must not stall startup indefinitely.
var warmupTimeout = 60 * time.Second

// EnsureReady verifies the Ollama server is reachable and the model is
// available locally, pulling it when missing. A single warm-up generation is
// issued so the first real classification does not pay model load time.
// Progress messages are written to out.
func EnsureReady(ctx context.Context, c *Client, model string, out io.Writer) error {
	if !c.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running; start it with 'ollama serve'")
	}

	if !c.HasModel(ctx, model) {
		fmt.Fprintf(out, "Model %s not found locally, pulling...\n", model)
		var lastStatus string
		err := c.PullModel(ctx, model, func(p PullProgress) {
			if p.Status != lastStatus {
				fmt.Fprintf(out, "  %s\n", p.Status)
				lastStatus = p.Status
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
	}

	warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	if _, err := c.Generate(warmCtx, model, "Answer only Yes or No. Is the sky blue?\n\nAnswer:"); err != nil {
		return fmt.Errorf("warming up model %s: %w", model, err)
	}

	return nil
}
