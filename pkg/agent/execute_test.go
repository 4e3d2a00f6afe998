package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/types"
)

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]interface{}
	}{
		{
			name: "plain json",
			raw:  `{"url":"https://a.test"}`,
			want: map[string]interface{}{"url": "https://a.test"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"query\":\"weather\"}\n```",
			want: map[string]interface{}{"query": "weather"},
		},
		{
			name: "embedded newlines and tabs",
			raw:  "{\"text\":\"a\",\n\t\"press_enter\":true}",
			want: map[string]interface{}{"text": "a", "press_enter": true},
		},
		{
			name: "empty arguments",
			raw:  "",
			want: map[string]interface{}{},
		},
		{
			name: "whitespace only",
			raw:  "  \n\t ",
			want: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolArguments(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseToolArgumentsInvalid(t *testing.T) {
	_, err := parseToolArguments(`{"url": not json}`)
	assert.Error(t, err)
}

func TestIntArg(t *testing.T) {
	args := map[string]interface{}{
		"number": float64(7),
		"string": " 12 ",
		"word":   "seven",
		"bool":   true,
	}

	id, err := intArg(args, "number")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	id, err = intArg(args, "string")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = intArg(args, "word")
	assert.Error(t, err)

	_, err = intArg(args, "bool")
	assert.Error(t, err)

	_, err = intArg(args, "missing")
	assert.Error(t, err)
}

func TestSimulatedResults(t *testing.T) {
	call := func(name, args string) types.ToolCallRequest {
		return types.ToolCallRequest{ID: "custom-tool-1", Name: name, Arguments: args}
	}

	got := simulatedResult(call(tools.ToolOpenURL, `{"url":"https://a.test"}`))
	assert.Equal(t, "Successfully opened URL: https://a.test. [simulated] page content loaded.", got)

	got = simulatedResult(call(tools.ToolOpenURL, `not json`))
	assert.Contains(t, got, "argument parsing failed")

	got = simulatedResult(call(tools.ToolClickElement, `{"element_id":4}`))
	assert.Contains(t, got, "element ID: 4")
	assert.Contains(t, got, "[simulated]")

	got = simulatedResult(call(tools.ToolGetPageInteractables, `{}`))
	assert.Contains(t, got, "[simulated]")

	got = simulatedResult(call("made_up_tool", `{}`))
	assert.Equal(t, "[simulated] tool made_up_tool executed successfully.", got)
}
