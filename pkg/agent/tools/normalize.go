package tools

import "github.com/tabpilot/tabpilot/pkg/types"

// CallSource identifies which encoding produced a turn's tool calls. The
// engine branches on it once per turn; everything downstream handles both
// encodings identically.
type CallSource int

const (
	// SourceNone means the response carried no tool calls.
	SourceNone CallSource = iota

	// SourceNative means the calls arrived on the structured tool_calls
	// field with endpoint-issued IDs.
	SourceNative

	// SourceExtracted means the calls were parsed from inline tags in the
	// text channel. Their IDs are locally generated, and replay must strip
	// the tags because the endpoint never issued these calls.
	SourceExtracted
)

// Resolution is the outcome of normalizing one assistant response.
type Resolution struct {
	Calls  []types.ToolCallRequest
	Source CallSource
}

// Synthetic reports whether results for these calls are locally fabricated
// pairings rather than endpoint-acknowledged ones.
func (r Resolution) Synthetic() bool {
	return r.Source == SourceExtracted
}

// ResolveToolCalls normalizes the two encodings into one call list. Native
// calls always win: if the structured field carried anything, inline tags
// are ignored rather than merged, since models that emit both duplicate the
// same calls. Otherwise both plain-text channels are scanned, text matches
// before reasoning matches.
func ResolveToolCalls(native []types.ToolCallRequest, text, reasoning string) Resolution {
	if len(native) > 0 {
		return Resolution{Calls: native, Source: SourceNative}
	}
	extracted := ExtractTagCalls(text)
	extracted = append(extracted, ExtractTagCalls(reasoning)...)
	if len(extracted) > 0 {
		return Resolution{Calls: extracted, Source: SourceExtracted}
	}
	return Resolution{Source: SourceNone}
}
