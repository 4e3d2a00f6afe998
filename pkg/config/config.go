// Package config holds the engine configuration: model endpoints, prompts,
// tool enablement, vision fallback settings, and approval whitelists.
// Settings persist in a sectioned JSON file written atomically; named
// presets can be exported to and imported from YAML.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ToolsPromptPlaceholder marks where the tool strategy text is spliced into
// the system prompt. When no tools are enabled the placeholder line is
// removed entirely.
const ToolsPromptPlaceholder = "{{TOOLS_PROMPT}}"

// QuickCommand is a canned user message offered by frontends.
type QuickCommand struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`

	// UseTempContext attaches the current page as a temporary context chip
	// when the command is sent.
	UseTempContext bool `json:"use_temp_context" yaml:"use_temp_context"`
}

// Config is the full engine configuration.
type Config struct {
	// Chat endpoint.
	APIURL      string  `json:"api_url" yaml:"api_url"`
	APIKey      string  `json:"api_key" yaml:"api_key"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	TopP        float64 `json:"top_p" yaml:"top_p"`

	// ExtraBody is merged over the request body, field by field, as an
	// escape hatch for provider-specific parameters.
	ExtraBody map[string]interface{} `json:"extra_body,omitempty" yaml:"extra_body,omitempty"`

	// Prompts.
	SystemPrompt             string `json:"system_prompt" yaml:"system_prompt"`
	ToolsPrompt              string `json:"tools_prompt" yaml:"tools_prompt"`
	SummaryPrompt            string `json:"summary_prompt" yaml:"summary_prompt"`
	InjectedUserContext      string `json:"injected_user_context" yaml:"injected_user_context"`
	InjectedAssistantContext string `json:"injected_assistant_context" yaml:"injected_assistant_context"`

	// MaxContextChars caps page text captured for the model.
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars"`

	// MaxContextTokens, when positive, additionally budgets assembled
	// request size by token count.
	MaxContextTokens int `json:"max_context_tokens" yaml:"max_context_tokens"`

	// Vision fallback endpoint for analyze_screenshot.
	VisionAPIURL string `json:"vision_api_url" yaml:"vision_api_url"`
	VisionAPIKey string `json:"vision_api_key" yaml:"vision_api_key"`
	VisionModel  string `json:"vision_model" yaml:"vision_model"`

	// EnabledTools maps tool name to enablement. Tools absent from the map
	// are disabled.
	EnabledTools map[string]bool `json:"enabled_tools" yaml:"enabled_tools"`

	// AutoApproveURLs are glob patterns (matched against host and
	// host/path) for which open_url skips the approval prompt.
	AutoApproveURLs []string `json:"auto_approve_urls,omitempty" yaml:"auto_approve_urls,omitempty"`

	// ApprovalTimeout bounds how long a dangerous tool call waits for the
	// user's answer.
	ApprovalTimeout time.Duration `json:"approval_timeout" yaml:"approval_timeout"`

	// Browser settings.
	Headless bool `json:"headless" yaml:"headless"`

	QuickCommands []QuickCommand `json:"quick_commands,omitempty" yaml:"quick_commands,omitempty"`
}

// Default returns the configuration used before the user saves anything.
func Default() *Config {
	return &Config{
		APIURL:      "https://api.openai.com/v1",
		Model:       "gpt-4o",
		Temperature: 1.0,
		TopP:        1.0,

		SystemPrompt: "You are a browser automation agent.\n" + ToolsPromptPlaceholder,
		ToolsPrompt: strings.Join([]string{
			"Strategy:",
			"1. If the user asks you to open a site, call open_url directly.",
			"2. Call get_page_interactables to observe the page.",
			"3. Act on elements using the IDs you obtained.",
			"4. If get_page_interactables cannot surface a suitable element, or the layout is too complex, call analyze_screenshot to let the vision model locate the element ID for you.",
		}, "\n"),
		SummaryPrompt: strings.Join([]string{
			"Summarize the core content of this page:",
			"1. Be concise.",
			"2. Cover the key points, terms, and conclusions.",
			"3. Present the result as a markdown list.",
		}, "\n"),

		MaxContextChars: 50000,

		VisionAPIURL: "https://api.openai.com/v1",
		VisionModel:  "gpt-4o",

		EnabledTools:    map[string]bool{},
		ApprovalTimeout: 5 * time.Minute,
		Headless:        true,

		QuickCommands: []QuickCommand{
			{Label: "Summarize page", Value: "Summarize the content of the current page", UseTempContext: true},
			{Label: "Explain terms", Value: "Explain the key technical terms on this page", UseTempContext: true},
			{Label: "Extract claims", Value: "Extract the main claims and supporting arguments from this page", UseTempContext: true},
		},
	}
}

// EnabledToolNames returns the names of enabled tools in the order given.
// Catalog order is preserved by passing the catalog's names.
func (c *Config) EnabledToolNames(catalogOrder []string) []string {
	names := make([]string, 0, len(catalogOrder))
	for _, name := range catalogOrder {
		if c.EnabledTools[name] {
			names = append(names, name)
		}
	}
	return names
}

// RenderSystemPrompt splices the tool strategy into the system prompt when
// tools are active. With no active tools the placeholder is removed along
// with any blank lines it leaves behind.
func (c *Config) RenderSystemPrompt(toolsActive bool) string {
	if toolsActive {
		return strings.ReplaceAll(c.SystemPrompt, ToolsPromptPlaceholder, c.ToolsPrompt)
	}

	stripped := strings.ReplaceAll(c.SystemPrompt, ToolsPromptPlaceholder, "")
	lines := strings.Split(stripped, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// Validate reports configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxContextChars < 0 {
		return fmt.Errorf("max_context_chars must not be negative")
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	copied := *c
	if c.ExtraBody != nil {
		copied.ExtraBody = make(map[string]interface{}, len(c.ExtraBody))
		for k, v := range c.ExtraBody {
			copied.ExtraBody[k] = v
		}
	}
	if c.EnabledTools != nil {
		copied.EnabledTools = make(map[string]bool, len(c.EnabledTools))
		for k, v := range c.EnabledTools {
			copied.EnabledTools[k] = v
		}
	}
	copied.AutoApproveURLs = append([]string(nil), c.AutoApproveURLs...)
	copied.QuickCommands = append([]QuickCommand(nil), c.QuickCommands...)
	return &copied
}
