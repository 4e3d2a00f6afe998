// Package parser decodes streamed chat completion responses.
//
// The wire format is newline-delimited server-sent events: each meaningful
// line is prefixed "data: " and carries either a JSON chunk or the literal
// [DONE] terminator. The decoder reconstructs the answer text, the reasoning
// channel, and indexed tool-call fragments from the deltas, tolerating any
// single malformed event without aborting the stream.
package parser

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tabpilot/tabpilot/pkg/types"
)

const (
	dataPrefix    = "data: "
	doneMarker    = "[DONE]"
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// ToolCallFragment accumulates one tool call across events. Name and
// Arguments grow by concatenation; ID is assigned by whichever event carries
// it.
type ToolCallFragment struct {
	ID        string
	Name      string
	Arguments string
}

// Final is the finalized result of one streamed response.
type Final struct {
	Text      string
	Reasoning string
	ToolCalls []types.ToolCallRequest

	// TaggedReasoning records that reasoning arrived as an inline
	// <think>...</think> segment inside the content channel rather than on
	// the dedicated reasoning field. UIs use this to pick the default
	// collapse state; it has no effect on data correctness.
	TaggedReasoning bool
}

// StreamDecoder consumes event lines and exposes the growing buffers for
// live display. Buffers only grow; nothing is reordered or truncated before
// finalization. One decoder serves exactly one in-flight model call.
type StreamDecoder struct {
	text      strings.Builder
	reasoning strings.Builder
	fragments map[int]*ToolCallFragment
	inThink   bool
	tagged    bool
	done      bool
	onUpdate  func(text, reasoning string)
}

// NewStreamDecoder creates a decoder for one streamed response.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{fragments: make(map[int]*ToolCallFragment)}
}

// SetOnUpdate registers a callback fired after every event that changed the
// text or reasoning buffers, with the current full buffer contents. Used to
// grow the store message incrementally for live display.
func (d *StreamDecoder) SetOnUpdate(fn func(text, reasoning string)) {
	d.onUpdate = fn
}

// streamEvent mirrors the chat completion chunk shape. Unknown fields are
// ignored.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			ToolCalls        []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
}

// FeedLine processes one line of the stream. It returns false once the
// terminator has been seen: remaining lines of the batch must not be
// processed. Non-event lines (SSE comments, blanks, other fields) and
// malformed JSON payloads are skipped without affecting decoder state.
func (d *StreamDecoder) FeedLine(line string) bool {
	if d.done {
		return false
	}

	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return true
	}
	payload := trimmed[len(dataPrefix):]
	if payload == doneMarker {
		d.done = true
		return false
	}

	var event streamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		// A single corrupt event must not kill the stream.
		return true
	}
	if len(event.Choices) == 0 {
		return true
	}

	delta := event.Choices[0].Delta
	changed := false

	if delta.ReasoningContent != "" {
		d.reasoning.WriteString(delta.ReasoningContent)
		changed = true
	}

	if delta.Content != "" {
		d.foldContent(delta.Content)
		changed = true
	}

	for _, tc := range delta.ToolCalls {
		frag, ok := d.fragments[tc.Index]
		if !ok {
			frag = &ToolCallFragment{}
			d.fragments[tc.Index] = frag
		}
		if tc.ID != "" {
			frag.ID = tc.ID
		}
		frag.Name += tc.Function.Name
		frag.Arguments += tc.Function.Arguments
	}

	if changed && d.onUpdate != nil {
		d.onUpdate(d.text.String(), d.reasoning.String())
	}
	return true
}

// foldContent routes a content delta between the text and reasoning buffers,
// honoring inline <think> tags. Tag markers are stripped; they never reach a
// buffer.
func (d *StreamDecoder) foldContent(part string) {
	if strings.Contains(part, thinkOpenTag) {
		d.inThink = true
		part = strings.Replace(part, thinkOpenTag, "", 1)
	}
	if before, after, found := strings.Cut(part, thinkCloseTag); found {
		d.inThink = false
		d.tagged = true
		d.reasoning.WriteString(before)
		d.text.WriteString(after)
		return
	}
	if d.inThink {
		d.reasoning.WriteString(part)
	} else {
		d.text.WriteString(part)
	}
}

// Text returns the answer buffer decoded so far.
func (d *StreamDecoder) Text() string { return d.text.String() }

// Reasoning returns the reasoning buffer decoded so far.
func (d *StreamDecoder) Reasoning() string { return d.reasoning.String() }

// HasToolCallFragments reports whether any native tool-call fragment has
// arrived.
func (d *StreamDecoder) HasToolCallFragments() bool { return len(d.fragments) > 0 }

// Final returns the finalized response. Tool calls are ordered by fragment
// index. Call once the stream has ended (terminator or stream close); the
// decoder is not reusable afterwards.
func (d *StreamDecoder) Final() *Final {
	indexes := make([]int, 0, len(d.fragments))
	for idx := range d.fragments {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]types.ToolCallRequest, 0, len(indexes))
	for _, idx := range indexes {
		frag := d.fragments[idx]
		args := frag.Arguments
		if args == "" {
			args = "{}"
		}
		calls = append(calls, types.ToolCallRequest{
			ID:        frag.ID,
			Name:      frag.Name,
			Arguments: args,
		})
	}

	return &Final{
		Text:            d.text.String(),
		Reasoning:       d.reasoning.String(),
		ToolCalls:       calls,
		TaggedReasoning: d.tagged,
	}
}
