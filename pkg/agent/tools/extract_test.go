package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanToolName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "open_url", "open_url"},
		{"whitespace", "  open_url  ", "open_url"},
		{"functions prefix", "functions.open_url", "open_url"},
		{"function prefix", "function.open_url", "open_url"},
		{"uppercase prefix", "Functions.open_url", "open_url"},
		{"index suffix", "open_url:0", "open_url"},
		{"prefix and suffix", "functions.click_element:12", "click_element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanToolName(tt.input))
		})
	}
}

func TestExtractTagCallsSingle(t *testing.T) {
	text := `I'll open the page.<|tool_call_begin|>functions.open_url:0<|tool_call_argument_begin|>{"url":"https://example.com"}<|tool_call_argument_end|><|tool_call_end|>`

	calls := ExtractTagCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "open_url", calls[0].Name)
	assert.Equal(t, `{"url":"https://example.com"}`, calls[0].Arguments)
	assert.True(t, strings.HasPrefix(calls[0].ID, "custom-tool-"))
}

func TestExtractTagCallsOptionalArgumentEnd(t *testing.T) {
	text := `<|tool_call_begin|>get_page_interactables<|tool_call_argument_begin|>{}<|tool_call_end|>`

	calls := ExtractTagCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "get_page_interactables", calls[0].Name)
	assert.Equal(t, "{}", calls[0].Arguments)
}

func TestExtractTagCallsEmptyArgumentsDefaultToObject(t *testing.T) {
	text := `<|tool_call_begin|>read_page_content<|tool_call_argument_begin|><|tool_call_end|>`

	calls := ExtractTagCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "{}", calls[0].Arguments)
}

func TestExtractTagCallsMultipleInOrder(t *testing.T) {
	text := `<|tool_calls_section_begin|>` +
		`<|tool_call_begin|>open_url:0<|tool_call_argument_begin|>{"url":"https://a.example"}<|tool_call_end|>` +
		`<|tool_call_begin|>read_page_content:1<|tool_call_argument_begin|>{}<|tool_call_end|>` +
		`<|tool_calls_section_end|>`

	calls := ExtractTagCalls(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "open_url", calls[0].Name)
	assert.Equal(t, "read_page_content", calls[1].Name)
	assert.NotEqual(t, calls[0].ID, calls[1].ID)
}

func TestExtractTagCallsArgumentsSpanLines(t *testing.T) {
	text := "<|tool_call_begin|>type_text<|tool_call_argument_begin|>{\n" +
		`  "element_id": 3,` + "\n" +
		`  "text": "hello"` + "\n" +
		"}<|tool_call_end|>"

	calls := ExtractTagCalls(text)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Arguments, `"element_id": 3`)
}

func TestExtractTagCallsNoTags(t *testing.T) {
	assert.Nil(t, ExtractTagCalls("just a regular answer"))
	assert.False(t, HasTagCalls("just a regular answer"))
}

func TestStripToolTags(t *testing.T) {
	text := `Opening now. <|tool_calls_section_begin|>` +
		`<|tool_call_begin|>open_url<|tool_call_argument_begin|>{"url":"https://a.example"}<|tool_call_end|>` +
		`<|tool_calls_section_end|> Done.`

	assert.Equal(t, "Opening now.  Done.", StripToolTags(text))
}

func TestStripToolTagsBareCallSpan(t *testing.T) {
	text := `Before <|tool_call_begin|>web_search<|tool_call_argument_begin|>{"query":"go"}<|tool_call_end|> after`

	assert.Equal(t, "Before  after", StripToolTags(text))
}

func TestStripToolTagsNoTags(t *testing.T) {
	assert.Equal(t, "plain answer", StripToolTags("  plain answer  "))
}
