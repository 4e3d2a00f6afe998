package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tabpilot/tabpilot/pkg/agent/session"
	"github.com/tabpilot/tabpilot/pkg/config"
	"github.com/tabpilot/tabpilot/pkg/llm"
	"github.com/tabpilot/tabpilot/pkg/llm/parser"
	"github.com/tabpilot/tabpilot/pkg/types"
)

const (
	// compactThresholdPercent is the share of the token budget at which old
	// turns start folding into summaries.
	compactThresholdPercent = 80.0

	// compactBatchSize is how many messages one summary replaces at most.
	// Tool results paired to a collected assistant message are always taken
	// along, so a batch can run slightly over.
	compactBatchSize = 10

	// summaryMeta marks a message as a compaction product so it is never
	// summarized again.
	summaryMeta = "summary"
)

const compactSystemPrompt = "You are a memory encoder for a browser automation agent. " +
	"Your summary replaces a span of the agent's conversation history, and the agent " +
	"must be able to continue from the summary alone. Preserve URLs, page titles, " +
	"element IDs, and tool outcomes exactly. No filler, no hedging."

// maybeCompact folds the oldest assistant and tool messages into summaries
// while the session exceeds the configured token budget. Best effort: a
// summarization failure leaves the log untouched and the turn proceeds.
func (e *Engine) maybeCompact(ctx context.Context, sess *session.Session, cfg *config.Config) {
	if e.counter == nil || cfg.MaxContextTokens <= 0 {
		return
	}

	for {
		msgs := sess.Messages()
		tokens := e.counter.CountMessagesTokens(msgs)
		usage := float64(tokens) / float64(cfg.MaxContextTokens) * 100
		if usage < compactThresholdPercent {
			return
		}

		block := collectCompactBlock(msgs)
		if len(block) == 0 {
			return
		}

		summary, err := e.summarizeBlock(ctx, cfg, block)
		if err != nil {
			e.logger.Warnf("history compaction failed, continuing uncompacted: %v", err)
			return
		}

		e.logger.Infof("compacted %d messages into a summary (%d tokens used of %d)",
			len(block), tokens, cfg.MaxContextTokens)
		replaceWithSummary(sess, msgs, block, summary)
	}
}

// collectCompactBlock returns the oldest contiguous run of assistant and tool
// messages eligible for summarization. User messages bound a block so the
// summary lands before the human turn that follows it; memory cards, engine
// notices, and earlier summaries are skipped without breaking the run.
func collectCompactBlock(msgs []*types.Message) []*types.Message {
	var block []*types.Message
	for _, msg := range msgs {
		switch {
		case msg.Role == types.RoleUser:
			if len(block) > 0 {
				return block
			}

		case msg.Role == types.RoleContext, msg.Role == types.RoleSystem:
			// Never summarized, never a boundary.

		case msg.Meta == summaryMeta:
			// Already compacted.

		case msg.Role == types.RoleAssistant || msg.Role == types.RoleTool:
			if len(block) >= compactBatchSize && msg.Role != types.RoleTool {
				return block
			}
			block = append(block, msg)
		}
	}
	// A run reaching the end of the log is the live turn; leave it alone.
	if len(block) > 0 && len(msgs) > 0 && block[len(block)-1].ID == msgs[len(msgs)-1].ID {
		return nil
	}
	return block
}

// summarizeBlock asks the model for a replacement summary of the block.
func (e *Engine) summarizeBlock(ctx context.Context, cfg *config.Config, block []*types.Message) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize the following span of agent history. ")
	b.WriteString("Keep completed actions, their outcomes, and anything the agent still needs.\n\n")
	for i, msg := range block {
		content := msg.Content
		if msg.Role == types.RoleAssistant {
			content = parserSafeContent(msg)
		}
		fmt.Fprintf(&b, "%d. %s: %s\n\n", i+1, msg.Role, content)
	}

	req := &llm.ChatRequest{
		Messages: []*types.Message{
			types.NewSystemMessage(compactSystemPrompt),
			{Role: types.RoleUser, Content: b.String()},
		},
		Temperature: fallbackTemperature,
	}

	chunks, err := e.provider.StreamCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	decoder := parser.NewStreamDecoder()
	for chunk := range chunks {
		if chunk.IsError() {
			return "", chunk.Err
		}
		if !decoder.FeedLine(chunk.Line) {
			break
		}
	}

	text := strings.TrimSpace(decoder.Final().Text)
	if text == "" {
		return "", fmt.Errorf("summary came back empty")
	}
	return text, nil
}

// parserSafeContent renders an assistant message for the summarization
// prompt, including its tool calls so the summary can preserve them.
func parserSafeContent(msg *types.Message) string {
	if len(msg.ToolCalls) == 0 {
		return msg.Content
	}
	parts := []string{msg.Content}
	for _, call := range msg.ToolCalls {
		parts = append(parts, fmt.Sprintf("[called %s with %s]", call.Name, call.Arguments))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// replaceWithSummary swaps the block for one summary message at the block's
// position, preserving every other message.
func replaceWithSummary(sess *session.Session, msgs []*types.Message, block []*types.Message, summary string) {
	inBlock := make(map[string]bool, len(block))
	for _, msg := range block {
		inBlock[msg.ID] = true
	}

	replacement := &types.Message{
		ID:      "sum-" + block[0].ID,
		Role:    types.RoleAssistant,
		Content: summary,
		Meta:    summaryMeta,
	}

	out := make([]*types.Message, 0, len(msgs)-len(block)+1)
	inserted := false
	for _, msg := range msgs {
		if inBlock[msg.ID] {
			if !inserted {
				out = append(out, replacement)
				inserted = true
			}
			continue
		}
		out = append(out, msg)
	}
	sess.Replace(out)
}
