package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpilot/tabpilot/pkg/types"
)

func assistantWithCalls(content string) *types.Message {
	msg := types.NewAssistantPlaceholder()
	msg.Content = content
	msg.ToolCalls = []types.ToolCallRequest{
		{ID: "call_1", Name: "open_url", Arguments: `{"url":"https://example.com"}`},
	}
	return msg
}

func TestAppendAndMessagesAreIsolated(t *testing.T) {
	s := New()
	s.Append(types.NewUserMessage("hello", "hello"))

	first := s.Messages()
	require.Len(t, first, 1)
	first[0].Content = "mutated"

	assert.Equal(t, "hello", s.Messages()[0].Content, "readers get copies, not the live message")
}

func TestUpdateMessageGrowsStreamingAssistant(t *testing.T) {
	s := New()
	placeholder := types.NewAssistantPlaceholder()
	s.Append(placeholder)

	ok := s.UpdateMessage(placeholder.ID, func(m *types.Message) {
		m.Content = "partial"
		m.Think = "reasoning so far"
	})
	require.True(t, ok)

	last := s.LastMessage()
	assert.Equal(t, "partial", last.Content)
	assert.Equal(t, "reasoning so far", last.Think)

	assert.False(t, s.UpdateMessage("no-such-id", func(m *types.Message) {}))
}

func TestMaybeSetTitleOnlyFirstUserMessage(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultTitle, s.Title())

	s.Append(types.NewUserMessage("open the weather site for me please", ""))
	s.MaybeSetTitle("open the weather site for me please")
	assert.Equal(t, "open the weather site for", s.Title(), "truncated to the rune limit")
	assert.Len(t, []rune(s.Title()), 25)

	firstTitle := s.Title()
	s.Append(types.NewUserMessage("now do something else", ""))
	s.MaybeSetTitle("now do something else")
	assert.Equal(t, firstTitle, s.Title(), "second user message must not retitle")
}

func TestMaybeSetTitleMultibyte(t *testing.T) {
	s := New()
	text := strings.Repeat("日", 40)
	s.Append(types.NewUserMessage(text, ""))
	s.MaybeSetTitle(text)
	assert.Equal(t, strings.Repeat("日", 25), s.Title())
}

func TestDropDanglingToolCalls(t *testing.T) {
	s := New()
	s.Append(types.NewUserMessage("go", ""))
	s.Append(assistantWithCalls("opening"))

	dropped := s.DropDanglingToolCalls()
	assert.Equal(t, 1, dropped)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, types.RoleUser, s.LastMessage().Role)
}

func TestDropDanglingToolCallsKeepsAnsweredCalls(t *testing.T) {
	s := New()
	s.Append(types.NewUserMessage("go", ""))
	s.Append(assistantWithCalls("opening"))
	s.Append(types.NewToolMessage("call_1", "open_url", "Successfully opened"))

	assert.Equal(t, 0, s.DropDanglingToolCalls())
	assert.Equal(t, 3, s.Len())
}

func TestTruncateForRetryAssistantTarget(t *testing.T) {
	s := New()
	user := types.NewUserMessage("go", "")
	s.Append(user)
	asst := types.NewAssistantPlaceholder()
	asst.Content = "wrong answer"
	s.Append(asst)

	require.NoError(t, s.TruncateForRetry(asst.ID))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, user.ID, s.LastMessage().ID, "assistant target is removed, prior user kept")
}

func TestTruncateForRetryUserTarget(t *testing.T) {
	s := New()
	user := types.NewUserMessage("go", "")
	s.Append(user)
	asst := types.NewAssistantPlaceholder()
	asst.Content = "answer"
	s.Append(asst)

	require.NoError(t, s.TruncateForRetry(user.ID))
	require.Equal(t, 1, s.Len())
	assert.Equal(t, user.ID, s.LastMessage().ID, "user target is kept, everything after removed")
}

func TestTruncateForRetryDropsDanglingTail(t *testing.T) {
	s := New()
	s.Append(types.NewUserMessage("go", ""))
	s.Append(assistantWithCalls("opening"))
	tool := types.NewToolMessage("call_1", "open_url", "ok")
	s.Append(tool)

	// Retrying the tool message slices after it, leaving the
	// assistant-with-calls answered; nothing extra is dropped.
	require.NoError(t, s.TruncateForRetry(tool.ID))
	assert.Equal(t, 3, s.Len())

	// Retrying the user message slices the answered pair away entirely.
	require.NoError(t, s.TruncateForRetry(s.Messages()[0].ID))
	assert.Equal(t, 1, s.Len())
}

func TestTruncateForRetryUnknownID(t *testing.T) {
	s := New()
	assert.Error(t, s.TruncateForRetry("missing"))
}

func TestClearResetsMessagesAndGrants(t *testing.T) {
	s := New()
	s.Append(types.NewUserMessage("go", ""))
	s.Approvals().Grant("open_url", "session")

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Approvals().IsApproved("open_url"))
}

func TestContextCards(t *testing.T) {
	s := New()
	s.Append(types.NewUserMessage("go", ""))
	card := types.NewContextCard("Docs", "https://example.com/docs", "page body", "captured")
	s.Append(card)

	cards := s.ContextCards()
	require.Len(t, cards, 1)
	assert.Equal(t, "Docs", cards[0].Title)
}
