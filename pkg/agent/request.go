package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/config"
	"github.com/tabpilot/tabpilot/pkg/llm"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// timestampLayout formats the current-time marker prefixed to the latest
// user message.
const timestampLayout = "2006-01-02 15:04:05"

// activeTools returns the enabled tool definitions in catalog order.
func activeTools(cfg *config.Config) []tools.Definition {
	catalog := tools.Catalog()
	order := make([]string, len(catalog))
	for i, def := range catalog {
		order[i] = def.Name
	}
	return tools.Filter(catalog, cfg.EnabledToolNames(order))
}

// guidanceActive reports whether the tool-usage guidance belongs in the
// system prompt. Silent tools are pure retrieval; they are offered to the
// model but never trigger the strategy block.
func guidanceActive(active []tools.Definition) bool {
	for _, def := range active {
		if !def.Silent {
			return true
		}
	}
	return false
}

// toolDefinitions converts catalog entries to the provider's wire shape.
func toolDefinitions(defs []tools.Definition) []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, len(defs))
	for i, def := range defs {
		out[i] = llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		}
	}
	return out
}

// assembleRequest builds the wire-form history for one model call:
//
//  1. The rendered system prompt, with the tool strategy spliced in when
//     tools are active.
//  2. Permanent memory cards aggregated into one system block.
//  3. Injected one-shot user and assistant context from configuration.
//  4. The session log: user messages send their full content, assistant
//     messages are sanitized of inline tool tags, tool results keep their
//     pairing IDs. Context cards and engine notices never replay.
//  5. The trailing empty assistant placeholder is dropped.
//  6. The last user message is prefixed with the current time.
func assembleRequest(cfg *config.Config, messages []*types.Message, toolsActive bool, now time.Time) []*types.Message {
	wire := make([]*types.Message, 0, len(messages)+4)

	system := types.NewSystemMessage(cfg.RenderSystemPrompt(toolsActive))
	wire = append(wire, system)

	if cards := renderMemoryCards(messages); cards != "" {
		wire = append(wire, types.NewSystemMessage(cards))
	}

	if injected := strings.TrimSpace(cfg.InjectedUserContext); injected != "" {
		wire = append(wire, &types.Message{Role: types.RoleUser, Content: injected})
	}
	if injected := strings.TrimSpace(cfg.InjectedAssistantContext); injected != "" {
		wire = append(wire, &types.Message{Role: types.RoleAssistant, Content: injected})
	}

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleContext, types.RoleSystem:
			// Cards were aggregated above; system notices are
			// transcript-only.
			continue
		case types.RoleUser:
			content := msg.Content
			if msg.FullContent != "" && msg.FullContent != msg.Content {
				content = msg.FullContent
			}
			wire = append(wire, &types.Message{Role: types.RoleUser, Content: content})
		case types.RoleAssistant:
			replay := &types.Message{
				Role:    types.RoleAssistant,
				Content: tools.StripToolTags(msg.Content),
			}
			if len(msg.ToolCalls) > 0 {
				replay.ToolCalls = make([]types.ToolCallRequest, len(msg.ToolCalls))
				copy(replay.ToolCalls, msg.ToolCalls)
			}
			wire = append(wire, replay)
		case types.RoleTool:
			wire = append(wire, &types.Message{
				Role:       types.RoleTool,
				ToolCallID: msg.ToolCallID,
				Name:       msg.Name,
				Content:    msg.Content,
			})
		}
	}

	// The streaming placeholder anchors store updates but must not reach
	// the endpoint.
	if len(wire) > 0 {
		last := wire[len(wire)-1]
		if last.IsEmptyAssistant() {
			wire = wire[:len(wire)-1]
		}
	}

	timestamp := now.Format(timestampLayout)
	for i := len(wire) - 1; i >= 0; i-- {
		if wire[i].Role == types.RoleUser {
			wire[i].Content = fmt.Sprintf("[Current Time: %s]\n%s", timestamp, wire[i].Content)
			break
		}
	}

	return wire
}

// renderMemoryCards aggregates permanent memory cards into one background
// block, or returns "" when the session has none.
func renderMemoryCards(messages []*types.Message) string {
	var blocks []string
	for _, msg := range messages {
		if msg.Role != types.RoleContext {
			continue
		}
		blocks = append(blocks, fmt.Sprintf(
			"<permanent_memory_card>\n  <title>%s</title>\n  <url>%s</url>\n  <content>%s</content>\n</permanent_memory_card>",
			msg.Title, msg.URL, msg.Content))
	}
	if len(blocks) == 0 {
		return ""
	}
	return "The user pinned these permanent memory cards as long-term background:\n" + strings.Join(blocks, "\n")
}
