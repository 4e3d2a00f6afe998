package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.SystemPrompt, ToolsPromptPlaceholder)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.APIURL = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Model = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Temperature = 3.5
	assert.Error(t, cfg.Validate())
}

func TestRenderSystemPromptWithTools(t *testing.T) {
	cfg := Default()
	cfg.SystemPrompt = "You are an agent.\n" + ToolsPromptPlaceholder
	cfg.ToolsPrompt = "Strategy: observe first."

	rendered := cfg.RenderSystemPrompt(true)
	assert.Equal(t, "You are an agent.\nStrategy: observe first.", rendered)
}

func TestRenderSystemPromptWithoutToolsStripsPlaceholder(t *testing.T) {
	cfg := Default()
	cfg.SystemPrompt = "You are an agent.\n" + ToolsPromptPlaceholder + "\n\nBe helpful."

	rendered := cfg.RenderSystemPrompt(false)
	assert.Equal(t, "You are an agent.\nBe helpful.", rendered)
	assert.NotContains(t, rendered, "{{")
}

func TestEnabledToolNamesPreservesOrder(t *testing.T) {
	cfg := Default()
	cfg.EnabledTools = map[string]bool{"b": true, "a": true, "c": false}

	names := cfg.EnabledToolNames([]string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestCloneIsolation(t *testing.T) {
	cfg := Default()
	cfg.EnabledTools["open_url"] = true
	cfg.AutoApproveURLs = []string{"*.example.com"}

	clone := cfg.Clone()
	clone.EnabledTools["open_url"] = false
	clone.AutoApproveURLs[0] = "mutated"

	assert.True(t, cfg.EnabledTools["open_url"])
	assert.Equal(t, "*.example.com", cfg.AutoApproveURLs[0])
}

func TestRenderSystemPromptPlaceholderMidLine(t *testing.T) {
	cfg := Default()
	cfg.SystemPrompt = "Agent. " + ToolsPromptPlaceholder
	cfg.ToolsPrompt = "Use tools."

	assert.Equal(t, "Agent. Use tools.", cfg.RenderSystemPrompt(true))
	assert.Equal(t, "Agent.", strings.TrimSpace(cfg.RenderSystemPrompt(false)))
}

func TestValidateDefaultMaxContextChars(t *testing.T) {
	cfg := Default()
	require.Equal(t, 50000, cfg.MaxContextChars)
	cfg.MaxContextChars = -1
	assert.Error(t, cfg.Validate())
}
