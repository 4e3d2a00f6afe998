// Package openai implements the chat provider against OpenAI-compatible
// endpoints.
//
// Streaming uses raw HTTP rather than the SDK stream helper: the raw lines
// are forwarded untouched to the caller, which keeps full control over event
// decoding and provides better compatibility with OpenAI-compatible APIs
// that include SSE comments or have slight format variations.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/tabpilot/tabpilot/pkg/llm"
	"github.com/tabpilot/tabpilot/pkg/types"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
)

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables local models, gateways, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// NewProvider creates a provider with the given API key.
//
// If apiKey is empty, it falls back to the OPENAI_API_KEY environment
// variable. If no base URL is set via WithBaseURL, OPENAI_BASE_URL is
// consulted before the default.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	return p, nil
}

// StreamCompletion sends the assembled request and streams back the raw
// response lines. The returned channel closes when the body is exhausted or
// the context is canceled; an error before any bytes arrive (connection
// failure, non-2xx status) fails the call itself.
func (p *Provider) StreamCompletion(ctx context.Context, req *llm.ChatRequest) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 16)
	go p.forwardStream(ctx, resp, chunks)
	return chunks, nil
}

// sendStreamRequest creates and sends the HTTP request for streaming.
func (p *Provider) sendStreamRequest(ctx context.Context, req *llm.ChatRequest) (*http.Response, error) {
	reqBody := map[string]interface{}{
		"model":    p.model,
		"messages": wireMessages(req.Messages),
		"stream":   true,
	}
	if req.Temperature != 0 {
		reqBody["temperature"] = req.Temperature
	}
	if len(req.Tools) > 0 {
		reqBody["tools"] = convertTools(req.Tools)
		reqBody["tool_choice"] = "auto"
	}
	for k, v := range req.Extra {
		reqBody[k] = v
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// forwardStream copies response lines to the channel until the body ends or
// the context is canceled. The request carries the context, so cancellation
// also unblocks an in-progress body read.
func (p *Provider) forwardStream(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	// Tool argument deltas can produce long lines; the default 64K token
	// limit is too small for large page snapshots echoed into arguments.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		select {
		case chunks <- &llm.StreamChunk{Line: line}:
		case <-ctx.Done():
			chunks <- &llm.StreamChunk{Err: ctx.Err()}
			return
		}
		// The consumer stops reading at the terminator; anything the
		// server sends afterwards would strand this goroutine on a full
		// channel.
		if strings.TrimSpace(line) == "data: [DONE]" {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			chunks <- &llm.StreamChunk{Err: ctx.Err()}
			return
		}
		chunks <- &llm.StreamChunk{Err: fmt.Errorf("stream read error: %w", err)}
	}
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// GetBaseURL returns the base URL being used.
func (p *Provider) GetBaseURL() string {
	return p.baseURL
}

// wireMessages converts the assembled history to the chat completion wire
// shape. Request assembly has already substituted user content and stripped
// tool tags from replayed assistant content; this is a mechanical mapping.
// Context cards never reach providers, so unknown roles are dropped.
func wireMessages(messages []*types.Message) []map[string]interface{} {
	wire := make([]map[string]interface{}, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			wire = append(wire, map[string]interface{}{
				"role":    "system",
				"content": msg.Content,
			})
		case types.RoleUser:
			wire = append(wire, map[string]interface{}{
				"role":    "user",
				"content": msg.Content,
			})
		case types.RoleAssistant:
			m := map[string]interface{}{
				"role":    "assistant",
				"content": msg.Content,
			}
			if len(msg.ToolCalls) > 0 {
				calls := make([]map[string]interface{}, 0, len(msg.ToolCalls))
				for _, tc := range msg.ToolCalls {
					calls = append(calls, map[string]interface{}{
						"id":   tc.ID,
						"type": "function",
						"function": map[string]interface{}{
							"name":      tc.Name,
							"arguments": tc.Arguments,
						},
					})
				}
				m["tool_calls"] = calls
			}
			wire = append(wire, m)
		case types.RoleTool:
			name := msg.Name
			if name == "" {
				name = "tool_result"
			}
			wire = append(wire, map[string]interface{}{
				"role":         "tool",
				"tool_call_id": msg.ToolCallID,
				"name":         name,
				"content":      msg.Content,
			})
		}
	}

	return wire
}

// convertTools maps tool definitions to the SDK's function tool params, which
// marshal to the wire schema.
func convertTools(tools []llm.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	params := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}
	return params
}
