// Package tokenizer provides client-side token counting for context budget
// enforcement. Counts are computed locally with the cl100k_base encoding, so
// budget decisions never require a round trip to the endpoint.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tabpilot/tabpilot/pkg/types"
)

const encodingName = "cl100k_base"

// Approximate per-message wire overhead (role, framing) in tokens.
const messageOverheadTokens = 4

// Tokenizer counts and truncates text against the model token budget.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. Initialization downloads or loads the encoding
// tables and can fail; callers treat a nil tokenizer as "use approximate
// counting".
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s encoding: %w", encodingName, err)
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountTokens returns the token count of a text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// CountMessagesTokens estimates the prompt size of a message history,
// including tool call payloads and the per-message wire overhead.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += messageOverheadTokens

		content := msg.Content
		if msg.Role == types.RoleUser && msg.FullContent != "" {
			content = msg.FullContent
		}
		total += t.CountTokens(content)

		for _, tc := range msg.ToolCalls {
			total += t.CountTokens(tc.Name)
			total += t.CountTokens(tc.Arguments)
		}
	}
	return total
}

// TruncateToBudget returns text cut to at most maxTokens tokens. Text within
// budget is returned unchanged.
func (t *Tokenizer) TruncateToBudget(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}
