package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tabpilot/tabpilot/pkg/types"
)

// mustNew creates a tokenizer or skips the test when the encoding tables
// cannot be initialized in the test environment.
func mustNew(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := New()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return tok
}

func TestCountTokens(t *testing.T) {
	tok := mustNew(t)

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Greater(t, tok.CountTokens("hello world"), 0)
	assert.Greater(t,
		tok.CountTokens("a considerably longer sentence with many more words in it"),
		tok.CountTokens("short"))
}

func TestCountMessagesTokensIncludesToolCalls(t *testing.T) {
	tok := mustNew(t)

	plain := []*types.Message{
		{Role: types.RoleUser, Content: "open the site"},
	}
	withCalls := []*types.Message{
		{Role: types.RoleUser, Content: "open the site"},
		{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCallRequest{
				{ID: "call_1", Name: "open_url", Arguments: `{"url":"https://example.com"}`},
			},
		},
	}

	assert.Greater(t, tok.CountMessagesTokens(withCalls), tok.CountMessagesTokens(plain))
}

func TestCountMessagesTokensPrefersFullContent(t *testing.T) {
	tok := mustNew(t)

	short := []*types.Message{{Role: types.RoleUser, Content: "hi"}}
	expanded := []*types.Message{{
		Role:        types.RoleUser,
		Content:     "hi",
		FullContent: "hi\n\n[Page Context]\nA very long extracted page body follows here.",
	}}

	assert.Greater(t, tok.CountMessagesTokens(expanded), tok.CountMessagesTokens(short))
}

func TestTruncateToBudget(t *testing.T) {
	tok := mustNew(t)

	text := "one two three four five six seven eight nine ten"
	assert.Equal(t, text, tok.TruncateToBudget(text, 1000))
	assert.Equal(t, "", tok.TruncateToBudget(text, 0))

	cut := tok.TruncateToBudget(text, 3)
	assert.NotEmpty(t, cut)
	assert.Less(t, len(cut), len(text))
	assert.LessOrEqual(t, tok.CountTokens(cut), 3)
}
