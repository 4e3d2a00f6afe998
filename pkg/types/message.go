// Package types defines the shared data model for the tabpilot agent engine:
// the session message log, tool call requests, and the event stream emitted
// toward UI observers.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies the variant of a Message.
type MessageRole string

const (
	// RoleSystem is an engine-generated notice (cancellation reasons, errors).
	RoleSystem MessageRole = "system"

	// RoleUser is a user turn. User messages may carry a FullContent that
	// includes inlined page context; Content stays the UI-visible text.
	RoleUser MessageRole = "user"

	// RoleAssistant is a model response: content, reasoning, tool calls.
	RoleAssistant MessageRole = "assistant"

	// RoleTool is the result of one tool call, paired to the request by
	// ToolCallID.
	RoleTool MessageRole = "tool"

	// RoleContext is a permanent memory card. Context messages never go to
	// the model as history; they are aggregated into a system block on
	// every request until explicitly removed.
	RoleContext MessageRole = "context"
)

// ToolCallRequest is one tool invocation requested by the model.
// Arguments is raw text (usually JSON) and is not guaranteed to parse.
type ToolCallRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a tagged union keyed by Role. Only the fields of the active
// variant are meaningful; request assembly and rendering switch on Role.
type Message struct {
	ID      string      `json:"id"`
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`

	// User variant. FullContent is the payload actually sent to the model
	// (Content plus inlined page context). Empty means Content is sent.
	FullContent string `json:"full_content,omitempty"`

	// Assistant variant.
	Think     string            `json:"think,omitempty"`
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`

	// Tool variant. ToolCallID must reference a ToolCallRequest ID from the
	// immediately preceding assistant message.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`

	// Context variant.
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Meta  string `json:"meta,omitempty"`
}

// NewUserMessage creates a user message. fullContent may equal content when
// no page context was attached.
func NewUserMessage(content, fullContent string) *Message {
	return &Message{
		ID:          "msg-" + uuid.New().String(),
		Role:        RoleUser,
		Content:     content,
		FullContent: fullContent,
	}
}

// NewAssistantPlaceholder creates the empty assistant message that anchors
// streaming output for the next loop iteration.
func NewAssistantPlaceholder() *Message {
	return &Message{
		ID:   "ai-" + uuid.New().String(),
		Role: RoleAssistant,
	}
}

// NewToolMessage creates a tool result message paired to a request ID.
func NewToolMessage(toolCallID, name, content string) *Message {
	return &Message{
		ID:         "tool-" + uuid.New().String(),
		Role:       RoleTool,
		ToolCallID: toolCallID,
		Name:       name,
		Content:    content,
	}
}

// NewSystemMessage creates an engine notice shown in the transcript.
func NewSystemMessage(content string) *Message {
	return &Message{
		ID:      "sys-" + uuid.New().String(),
		Role:    RoleSystem,
		Content: content,
	}
}

// NewContextCard creates a permanent memory card captured from a page.
func NewContextCard(title, url, content, meta string) *Message {
	return &Message{
		ID:      fmt.Sprintf("ctx-%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8]),
		Role:    RoleContext,
		Title:   title,
		URL:     url,
		Content: content,
		Meta:    meta,
	}
}

// HasToolCalls reports whether the message is an assistant message carrying
// at least one tool call. A non-empty tool call list forces the agent loop
// to continue.
func (m *Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// IsEmptyAssistant reports whether the message is a streaming placeholder
// that never received content.
func (m *Message) IsEmptyAssistant() bool {
	return m.Role == RoleAssistant && m.Content == "" && len(m.ToolCalls) == 0
}

// Clone returns a deep copy. Store readers receive clones so mid-stream
// mutation of the live message cannot race rendering.
func (m *Message) Clone() *Message {
	c := *m
	if len(m.ToolCalls) > 0 {
		c.ToolCalls = make([]ToolCallRequest, len(m.ToolCalls))
		copy(c.ToolCalls, m.ToolCalls)
	}
	return &c
}
