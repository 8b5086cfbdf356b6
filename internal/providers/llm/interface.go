// Package llm provides text-generation clients for the supported model
// providers behind one small interface.
package llm

import (
	"context"
)

// Client is the interface every provider implementation satisfies.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateTextStream delivers the reply incrementally. Providers without
	// native streaming deliver the whole reply as one chunk.
	GenerateTextStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error
}
