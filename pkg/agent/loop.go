package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/tabpilot/tabpilot/pkg/agent/session"
	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/config"
	"github.com/tabpilot/tabpilot/pkg/llm"
	"github.com/tabpilot/tabpilot/pkg/llm/parser"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// fallbackTemperature applies when the configured temperature is zero,
// matching the endpoint default the engine was tuned against.
const fallbackTemperature = 0.3

// runLoop drives the agent iterations for one turn: stream a response into
// the anchored assistant message, resolve tool calls, execute or simulate
// them, and continue until the model answers without calls, the iteration
// cap is reached, or the turn is canceled.
func (e *Engine) runLoop(ctx context.Context, sess *session.Session, cfg *config.Config, active []tools.Definition) error {
	defs := toolDefinitions(active)
	guidance := guidanceActive(active)

	for iteration := 0; iteration < MaxLoops; iteration++ {
		anchor := sess.LastMessage()
		if anchor == nil || anchor.Role != types.RoleAssistant {
			// The log no longer ends in a streaming anchor; someone
			// else mutated it. Exit without damage.
			e.logger.Warnf("loop anchor missing at iteration %d, ending turn", iteration)
			return nil
		}
		anchorID := anchor.ID

		final, err := e.streamIteration(ctx, sess, cfg, defs, guidance, anchorID)
		if err != nil {
			if ctx.Err() != nil {
				e.dropEmptyAnchor(sess, anchorID)
				return nil
			}
			e.dropEmptyAnchor(sess, anchorID)
			e.emit(types.NewErrorEvent(err))
			return err
		}

		res := tools.ResolveToolCalls(final.ToolCalls, final.Text, final.Reasoning)

		sess.UpdateMessage(anchorID, func(m *types.Message) {
			m.Content = final.Text
			m.Think = final.Reasoning
			m.ToolCalls = res.Calls
		})
		e.reportUsage(cfg, sess, final)

		if res.Source == tools.SourceNone {
			return nil
		}

		for _, call := range res.Calls {
			var result string
			switch {
			case res.Synthetic():
				// Tag-grammar calls were never issued by the
				// endpoint; pair them with simulated results
				// instead of touching the page.
				result = simulatedResult(call)
			case ctx.Err() != nil:
				// Cancellation arrived mid-batch. Every requested
				// call still gets a result so the stored pairing
				// stays replayable.
				result = "[system] tool execution canceled"
			default:
				result = e.executeCall(ctx, call)
			}
			sess.Append(types.NewToolMessage(call.ID, call.Name, result))
			e.emit(types.NewToolResultEvent(call.Name, result))
		}

		if ctx.Err() != nil {
			return nil
		}

		sess.Append(types.NewAssistantPlaceholder())
	}

	// Cap exhausted. Remove the placeholder the final iteration anchored
	// but never filled.
	e.logger.Infof("iteration cap of %d reached, ending turn", MaxLoops)
	if last := sess.LastMessage(); last != nil && last.IsEmptyAssistant() {
		sess.RemoveMessage(last.ID)
	}
	return nil
}

// streamIteration performs one model call, growing the anchored assistant
// message as deltas arrive.
func (e *Engine) streamIteration(ctx context.Context, sess *session.Session, cfg *config.Config, defs []llm.ToolDefinition, guidance bool, anchorID string) (*parser.Final, error) {
	wire := assembleRequest(cfg, sess.Messages(), guidance, time.Now())

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = fallbackTemperature
	}

	extra := make(map[string]interface{}, len(cfg.ExtraBody)+1)
	for k, v := range cfg.ExtraBody {
		extra[k] = v
	}
	if cfg.TopP != 0 && cfg.TopP != 1 {
		extra["top_p"] = cfg.TopP
	}

	req := &llm.ChatRequest{
		Messages:    wire,
		Tools:       defs,
		Temperature: temperature,
		Extra:       extra,
	}

	chunks, err := e.provider.StreamCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	decoder := parser.NewStreamDecoder()
	decoder.SetOnUpdate(func(text, reasoning string) {
		sess.UpdateMessage(anchorID, func(m *types.Message) {
			m.Content = text
			m.Think = reasoning
		})
		if text != "" {
			e.emit(types.NewMessageContentEvent(anchorID, text))
		}
		if reasoning != "" {
			e.emit(types.NewThinkingContentEvent(anchorID, reasoning))
		}
	})

	for chunk := range chunks {
		if chunk.IsError() {
			return nil, chunk.Err
		}
		if !decoder.FeedLine(chunk.Line) {
			break
		}
	}

	return decoder.Final(), nil
}

// dropEmptyAnchor removes an anchored assistant message that never received
// content, so failed iterations leave no husk in the transcript.
func (e *Engine) dropEmptyAnchor(sess *session.Session, anchorID string) {
	msg := sess.LastMessage()
	if msg != nil && msg.ID == anchorID && msg.IsEmptyAssistant() {
		sess.RemoveMessage(anchorID)
	}
}

// reportUsage emits a token usage event when counting is available.
func (e *Engine) reportUsage(cfg *config.Config, sess *session.Session, final *parser.Final) {
	if e.counter == nil {
		return
	}
	prompt := e.counter.CountMessagesTokens(sess.Messages())
	completion := e.counter.CountTokens(final.Text) + e.counter.CountTokens(final.Reasoning)
	e.emit(types.NewTokenUsageEvent(prompt, completion))
}
