package types

// AgentEventType defines the type of event emitted by the engine.
type AgentEventType string

const (
	EventTypeThinkingContent     AgentEventType = "thinking_content"      // EventTypeThinkingContent carries a reasoning-channel delta.
	EventTypeMessageContent      AgentEventType = "message_content"       // EventTypeMessageContent carries an answer-channel delta.
	EventTypeToolCall            AgentEventType = "tool_call"             // EventTypeToolCall indicates the engine is executing a tool.
	EventTypeToolResult          AgentEventType = "tool_result"           // EventTypeToolResult carries a tool's textual result.
	EventTypeToolApprovalRequest AgentEventType = "tool_approval_request" // EventTypeToolApprovalRequest asks the user to authorize a dangerous tool.
	EventTypeTokenUsage          AgentEventType = "token_usage"           // EventTypeTokenUsage reports prompt/completion token counts.
	EventTypeUpdateBusy          AgentEventType = "update_busy"           // EventTypeUpdateBusy signals a change in generating state.
	EventTypeTurnEnd             AgentEventType = "turn_end"              // EventTypeTurnEnd indicates the turn finished (success, cap, or cancel).
	EventTypeCanceled            AgentEventType = "canceled"              // EventTypeCanceled carries the watchdog's cancellation reason.
	EventTypeError               AgentEventType = "error"                 // EventTypeError carries a transport or critical failure, retryable by the UI.
)

// AgentEvent is one observation of engine progress. Events exist for live
// display only; the message store remains the source of truth.
type AgentEvent struct {
	Type AgentEventType

	// Content holds text for content-type events and cancellation reasons.
	Content string

	// MessageID correlates content deltas with the store message being grown.
	MessageID string

	// ToolName and ToolInput describe the tool for call/approval events.
	ToolName  string
	ToolInput map[string]interface{}

	// ToolOutput is the stringified result for tool result events.
	ToolOutput string

	// ApprovalID identifies a pending approval request.
	ApprovalID string

	// IsBusy is set for busy status events.
	IsBusy bool

	// Usage is set for token usage events.
	Usage *TokenUsage

	// Err is set for error events.
	Err error
}

// TokenUsage contains token counts for one model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewThinkingContentEvent creates a reasoning delta event.
func NewThinkingContentEvent(messageID, content string) *AgentEvent {
	return &AgentEvent{Type: EventTypeThinkingContent, MessageID: messageID, Content: content}
}

// NewMessageContentEvent creates an answer delta event.
func NewMessageContentEvent(messageID, content string) *AgentEvent {
	return &AgentEvent{Type: EventTypeMessageContent, MessageID: messageID, Content: content}
}

// NewToolCallEvent creates a tool execution event.
func NewToolCallEvent(toolName string, input map[string]interface{}) *AgentEvent {
	return &AgentEvent{Type: EventTypeToolCall, ToolName: toolName, ToolInput: input}
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(toolName, output string) *AgentEvent {
	return &AgentEvent{Type: EventTypeToolResult, ToolName: toolName, ToolOutput: output}
}

// NewToolApprovalRequestEvent creates an approval request event.
func NewToolApprovalRequestEvent(approvalID, toolName string, input map[string]interface{}) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolApprovalRequest,
		ApprovalID: approvalID,
		ToolName:   toolName,
		ToolInput:  input,
	}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(prompt, completion int) *AgentEvent {
	return &AgentEvent{
		Type:  EventTypeTokenUsage,
		Usage: &TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion},
	}
}

// NewUpdateBusyEvent creates a busy status event.
func NewUpdateBusyEvent(busy bool) *AgentEvent {
	return &AgentEvent{Type: EventTypeUpdateBusy, IsBusy: busy}
}

// NewTurnEndEvent creates a turn end event.
func NewTurnEndEvent() *AgentEvent {
	return &AgentEvent{Type: EventTypeTurnEnd}
}

// NewCanceledEvent creates a cancellation event with a user-facing reason.
func NewCanceledEvent(reason string) *AgentEvent {
	return &AgentEvent{Type: EventTypeCanceled, Content: reason}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{Type: EventTypeError, Err: err}
}
