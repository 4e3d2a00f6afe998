package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpilot/tabpilot/pkg/types"
)

func TestResolveToolCallsNativeWins(t *testing.T) {
	native := []types.ToolCallRequest{
		{ID: "call_1", Name: "open_url", Arguments: `{"url":"https://example.com"}`},
	}
	// Text duplicates the call in tag form; it must be ignored.
	text := `<|tool_call_begin|>open_url<|tool_call_argument_begin|>{"url":"https://example.com"}<|tool_call_end|>`

	res := ResolveToolCalls(native, text, "")
	assert.Equal(t, SourceNative, res.Source)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "call_1", res.Calls[0].ID)
	assert.False(t, res.Synthetic())
}

func TestResolveToolCallsFallsBackToExtracted(t *testing.T) {
	text := `<|tool_call_begin|>web_search<|tool_call_argument_begin|>{"query":"weather"}<|tool_call_end|>`

	res := ResolveToolCalls(nil, text, "")
	assert.Equal(t, SourceExtracted, res.Source)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "web_search", res.Calls[0].Name)
	assert.True(t, res.Synthetic())
}

func TestResolveToolCallsScansReasoningChannel(t *testing.T) {
	reasoning := `planning... <|tool_call_begin|>read_page_content<|tool_call_argument_begin|>{}<|tool_call_end|>`

	res := ResolveToolCalls(nil, "no tags here", reasoning)
	assert.Equal(t, SourceExtracted, res.Source)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "read_page_content", res.Calls[0].Name)
}

func TestResolveToolCallsTextPrecedesReasoning(t *testing.T) {
	text := `<|tool_call_begin|>open_url<|tool_call_argument_begin|>{"url":"https://a.test"}<|tool_call_end|>`
	reasoning := `<|tool_call_begin|>web_search<|tool_call_argument_begin|>{"query":"x"}<|tool_call_end|>`

	res := ResolveToolCalls(nil, text, reasoning)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, "open_url", res.Calls[0].Name)
	assert.Equal(t, "web_search", res.Calls[1].Name)
}

func TestResolveToolCallsNone(t *testing.T) {
	res := ResolveToolCalls(nil, "final answer, no tools needed", "")
	assert.Equal(t, SourceNone, res.Source)
	assert.Empty(t, res.Calls)
}
