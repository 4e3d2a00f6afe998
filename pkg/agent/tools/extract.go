package tools

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tabpilot/tabpilot/pkg/types"
)

// Some models emit tool calls inline in the text channel using a special
// token grammar instead of the structured tool_calls field. One call spans
// from tool_call_begin to tool_call_end, with the name and arguments
// separated by tool_call_argument_begin; the closing argument token is
// optional. A section wrapper may enclose a run of calls.

// Compile regexes once at package level for efficiency.
var (
	tagCallRegex = regexp.MustCompile(
		`(?is)<\|tool_call_begin\|>(.*?)<\|tool_call_argument_begin\|>(.*?)(?:<\|tool_call_argument_end\|>)?<\|tool_call_end\|>`)

	tagSectionRegex = regexp.MustCompile(
		`(?is)<\|tool_calls_section_begin\|>.*?<\|tool_calls_section_end\|>`)

	// Model-decorated names arrive as "functions.open_url:0" and similar.
	funcPrefixRegex  = regexp.MustCompile(`(?i)^functions?\.`)
	indexSuffixRegex = regexp.MustCompile(`:\d+$`)
)

// CleanToolName strips the decorations models attach to tool names in the
// tag grammar: surrounding whitespace, a "functions." namespace prefix, and
// a ":N" index suffix.
func CleanToolName(name string) string {
	name = strings.TrimSpace(name)
	name = funcPrefixRegex.ReplaceAllString(name, "")
	name = indexSuffixRegex.ReplaceAllString(name, "")
	return name
}

// ExtractTagCalls parses inline tag-grammar tool calls out of assistant
// text, in order of appearance. Each call receives a locally generated ID
// so results can be paired the same way as native calls. Text without tags
// yields nil.
func ExtractTagCalls(text string) []types.ToolCallRequest {
	matches := tagCallRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	calls := make([]types.ToolCallRequest, 0, len(matches))
	for _, m := range matches {
		name := CleanToolName(m[1])
		if name == "" {
			continue
		}
		args := strings.TrimSpace(m[2])
		if args == "" {
			args = "{}"
		}
		calls = append(calls, types.ToolCallRequest{
			ID:        "custom-tool-" + uuid.New().String(),
			Name:      name,
			Arguments: args,
		})
	}
	if len(calls) == 0 {
		return nil
	}
	return calls
}

// HasTagCalls reports whether the text contains at least one inline call.
func HasTagCalls(text string) bool {
	return tagCallRegex.MatchString(text)
}

// StripToolTags removes all tag-grammar spans from assistant text: section
// wrappers first, then any remaining bare call spans. Used when replaying
// history to the endpoint; the stored message keeps the raw tags for
// display.
func StripToolTags(text string) string {
	stripped := tagSectionRegex.ReplaceAllString(text, "")
	stripped = tagCallRegex.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped)
}
