package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, d *StreamDecoder, lines []string) {
	t.Helper()
	for _, line := range lines {
		if !d.FeedLine(line) {
			return
		}
	}
}

func TestStreamDecoderPlainContent(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"content":"Hello"}}]}`,
		`data: {"choices":[{"delta":{"content":", world"}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	assert.Equal(t, "Hello, world", final.Text)
	assert.Empty(t, final.Reasoning)
	assert.Empty(t, final.ToolCalls)
	assert.False(t, final.TaggedReasoning)
}

func TestStreamDecoderReasoningContentField(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"reasoning_content":"thinking "}}]}`,
		`data: {"choices":[{"delta":{"reasoning_content":"hard"}}]}`,
		`data: {"choices":[{"delta":{"content":"answer"}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	assert.Equal(t, "thinking hard", final.Reasoning)
	assert.Equal(t, "answer", final.Text)
	assert.False(t, final.TaggedReasoning, "dedicated reasoning field should not set the tagged flag")
}

func TestStreamDecoderInlineThinkTagsSingleChunk(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"content":"<think>ab</think>cd"}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	assert.Equal(t, "ab", final.Reasoning)
	assert.Equal(t, "cd", final.Text)
	assert.True(t, final.TaggedReasoning)
}

func TestStreamDecoderInlineThinkTagsSplitAcrossChunks(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"content":"<think>first "}}]}`,
		`data: {"choices":[{"delta":{"content":"second"}}]}`,
		`data: {"choices":[{"delta":{"content":"</think>visible"}}]}`,
		`data: {"choices":[{"delta":{"content":" text"}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	assert.Equal(t, "first second", final.Reasoning)
	assert.Equal(t, "visible text", final.Text)
	assert.True(t, final.TaggedReasoning)
}

func TestStreamDecoderToolCallFragments(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"open_url","arguments":""}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"url\":"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"https://example.com\"}"}}]}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "call_1", final.ToolCalls[0].ID)
	assert.Equal(t, "open_url", final.ToolCalls[0].Name)
	assert.Equal(t, `{"url":"https://example.com"}`, final.ToolCalls[0].Arguments)
}

func TestStreamDecoderToolCallsOrderedByIndex(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"type_text"}}]}}]}`,
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"click_element"}}]}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	require.Len(t, final.ToolCalls, 2)
	assert.Equal(t, "click_element", final.ToolCalls[0].Name)
	assert.Equal(t, "type_text", final.ToolCalls[1].Name)
}

func TestStreamDecoderEmptyArgumentsDefaultToObject(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"get_page_interactables"}}]}}]}`,
		`data: [DONE]`,
	})

	final := d.Final()
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "{}", final.ToolCalls[0].Arguments)
}

func TestStreamDecoderSkipsMalformedEvents(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"content":"before"}}]}`,
		`data: {not valid json`,
		`data: {"choices":[{"delta":{"content":" after"}}]}`,
		`data: [DONE]`,
	})

	assert.Equal(t, "before after", d.Final().Text)
}

func TestStreamDecoderIgnoresNonEventLines(t *testing.T) {
	d := NewStreamDecoder()
	feedAll(t, d, []string{
		``,
		`: keep-alive`,
		`event: message`,
		`data: {"choices":[{"delta":{"content":"ok"}}]}`,
		`data: [DONE]`,
	})

	assert.Equal(t, "ok", d.Final().Text)
}

func TestStreamDecoderStopsAtTerminator(t *testing.T) {
	d := NewStreamDecoder()
	assert.True(t, d.FeedLine(`data: {"choices":[{"delta":{"content":"kept"}}]}`))
	assert.False(t, d.FeedLine(`data: [DONE]`))
	assert.False(t, d.FeedLine(`data: {"choices":[{"delta":{"content":"dropped"}}]}`))

	assert.Equal(t, "kept", d.Final().Text)
}

func TestStreamDecoderOnUpdateBuffersOnlyGrow(t *testing.T) {
	d := NewStreamDecoder()
	var snapshots []string
	d.SetOnUpdate(func(text, reasoning string) {
		snapshots = append(snapshots, text)
	})

	feedAll(t, d, []string{
		`data: {"choices":[{"delta":{"content":"a"}}]}`,
		`data: {"choices":[{"delta":{"content":"b"}}]}`,
		`data: {"choices":[{"delta":{"content":"c"}}]}`,
		`data: [DONE]`,
	})

	require.Len(t, snapshots, 3)
	for i := 1; i < len(snapshots); i++ {
		assert.True(t, len(snapshots[i]) > len(snapshots[i-1]))
		assert.Equal(t, snapshots[i-1], snapshots[i][:len(snapshots[i-1])])
	}
	assert.Equal(t, "abc", snapshots[len(snapshots)-1])
}
