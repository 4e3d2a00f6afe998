// Package tools defines the browser tool catalog and the two tool-call
// encodings the engine accepts: native structured calls from the endpoint
// and the inline tag grammar some models emit in plain text.
package tools

// Definition describes one callable browser tool in endpoint-neutral form.
type Definition struct {
	// Name is the unique tool identifier.
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Parameters is the JSON schema for the tool's arguments.
	Parameters map[string]interface{}

	// Dangerous tools mutate page or browser state and require user
	// approval before execution.
	Dangerous bool

	// Silent tools produce bulk text for the model. Their results stay out
	// of the visible transcript and are only replayed as tool messages.
	Silent bool
}

// Canonical tool names.
const (
	ToolGetPageInteractables = "get_page_interactables"
	ToolReadPageContent      = "read_page_content"
	ToolClickElement         = "click_element"
	ToolTypeText             = "type_text"
	ToolOpenURL              = "open_url"
	ToolAnalyzeScreenshot    = "analyze_screenshot"
	ToolWebSearch            = "web_search"
	ToolFetchURLContent      = "fetch_url_content"
)

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Catalog returns the full browser tool set. The slice is freshly allocated
// on each call so callers may filter it in place.
func Catalog() []Definition {
	return []Definition{
		{
			Name: ToolGetPageInteractables,
			Description: "Capture a snapshot of the interactable elements on the current page, " +
				"with their numeric IDs and labels. Must be called before clicking or typing " +
				"to confirm the target ID.",
			Parameters: BaseToolSchema(map[string]interface{}{}, nil),
		},
		{
			Name: ToolReadPageContent,
			Description: "Extract and return the main text content of the current page. " +
				"Use for answering questions about, summarizing, or analyzing the page.",
			Parameters: BaseToolSchema(map[string]interface{}{}, nil),
			Silent:     true,
		},
		{
			Name: ToolClickElement,
			Description: "Simulate a mouse click on a page element. Requires the exact " +
				"element_id obtained from get_page_interactables.",
			Parameters: BaseToolSchema(map[string]interface{}{
				"element_id": map[string]interface{}{
					"type":        "integer",
					"description": "Unique numeric ID of the target element",
				},
			}, []string{"element_id"}),
			Dangerous: true,
		},
		{
			Name: ToolTypeText,
			Description: "Inject text into an input field. Optionally presses Enter afterwards " +
				"to trigger search or form submission.",
			Parameters: BaseToolSchema(map[string]interface{}{
				"element_id": map[string]interface{}{
					"type":        "integer",
					"description": "Unique numeric ID of the target input field",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to inject",
				},
				"press_enter": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether to press Enter after injecting the text",
					"default":     false,
				},
			}, []string{"element_id", "text"}),
			Dangerous: true,
		},
		{
			Name: ToolOpenURL,
			Description: "Open a URL in the browser, navigate to the page, and wait for it " +
				"to finish loading.",
			Parameters: BaseToolSchema(map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Full URL including the http/https scheme",
				},
			}, []string{"url"}),
			Dangerous: true,
		},
		{
			Name: ToolAnalyzeScreenshot,
			Description: "Visual fallback for element location. Use when DOM identification " +
				"fails or the page layout is too complex. Produces an ID-annotated screenshot " +
				"analyzed by a vision model to locate the target.",
			Parameters: BaseToolSchema(map[string]interface{}{
				"target_description": map[string]interface{}{
					"type":        "string",
					"description": "Appearance and rough position of the element to find",
				},
			}, []string{"target_description"}),
		},
		{
			Name: ToolWebSearch,
			Description: "External search engine lookup. Use when the current page cannot " +
				"provide the needed information or recent facts must be retrieved.",
			Parameters: BaseToolSchema(map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search keywords",
				},
			}, []string{"query"}),
			Silent: true,
		},
		{
			Name: ToolFetchURLContent,
			Description: "Fetch a content summary of a URL without switching the active tab. " +
				"Commonly used to read search results in depth.",
			Parameters: BaseToolSchema(map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Full URL of the page to parse",
				},
			}, []string{"url"}),
			Silent: true,
		},
	}
}

// Filter returns the definitions whose names appear in enabled, preserving
// catalog order. A nil enabled list means all tools.
func Filter(defs []Definition, enabled []string) []Definition {
	if enabled == nil {
		return defs
	}
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}
	filtered := make([]Definition, 0, len(defs))
	for _, def := range defs {
		if allowed[def.Name] {
			filtered = append(filtered, def)
		}
	}
	return filtered
}

// Lookup finds a definition by name in the full catalog.
func Lookup(name string) (Definition, bool) {
	for _, def := range Catalog() {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// IsDangerous reports whether the named tool requires approval. Unknown
// tools are not dangerous; they fail execution before reaching the page.
func IsDangerous(name string) bool {
	def, ok := Lookup(name)
	return ok && def.Dangerous
}

// IsSilent reports whether the named tool's result is kept out of the
// visible transcript.
func IsSilent(name string) bool {
	def, ok := Lookup(name)
	return ok && def.Silent
}
