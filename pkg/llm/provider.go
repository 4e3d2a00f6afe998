// Package llm provides abstractions for LLM endpoint integration.
//
// Providers handle the wire protocol only: they send an assembled request and
// hand back the raw server-sent event lines of the response. Decoding those
// lines into text, reasoning, and tool-call channels is the job of
// llm/parser, which keeps the protocol decoder testable against a fake
// chunked source without any network I/O.
package llm

import (
	"context"

	"github.com/tabpilot/tabpilot/pkg/types"
)

// ToolDefinition describes one callable tool in the shape the endpoint
// expects: a name, a human-readable description, and a JSON-schema parameter
// object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ChatRequest is one fully assembled model call.
type ChatRequest struct {
	// Messages is the wire-form history. Request assembly has already
	// applied content substitution and sanitization; providers transmit
	// messages as given.
	Messages []*types.Message

	// Tools, when non-empty, is attached to the request together with an
	// automatic tool choice.
	Tools []ToolDefinition

	Temperature float64

	// Extra holds caller-supplied top-level body fields merged over the
	// standard ones (escape hatch for provider-specific parameters).
	Extra map[string]interface{}
}

// StreamChunk is one raw line of a streamed response, or a terminal stream
// error. The "data: " framing is preserved so the decoder owns all protocol
// interpretation.
type StreamChunk struct {
	Line string
	Err  error
}

// IsError reports whether the chunk carries a stream read failure.
func (c *StreamChunk) IsError() bool { return c.Err != nil }

// Provider defines the interface for chat model endpoints.
//
// StreamCompletion returns an error only when the request cannot be started
// or the endpoint answers non-2xx; those are hard failures of the current
// turn. Stream-time read errors arrive as chunks with Err set. The channel
// closes when the response body is exhausted or the context is canceled, and
// cancellation unblocks an in-progress read immediately.
type Provider interface {
	StreamCompletion(ctx context.Context, req *ChatRequest) (<-chan *StreamChunk, error)

	// GetModel returns the model name requests are sent to.
	GetModel() string

	// GetBaseURL returns the endpoint base URL.
	GetBaseURL() string
}

// VisionProvider is the single-shot multimodal fallback used when element-ID
// resolution through the DOM snapshot fails. It returns the model's textual
// analysis of the annotated screenshot.
type VisionProvider interface {
	AnalyzeImage(ctx context.Context, prompt, imageDataURL string) (string, error)
}
