package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// visionSystemPrompt frames the annotated screenshot for the fallback
// model.
const visionSystemPrompt = "You are looking at a screenshot of a web page. " +
	"Interactable elements are outlined in red and labeled with red numeric ID badges. " +
	"Identify the element the user describes and answer with its numeric ID and a short justification. " +
	"If no badge matches the description, say so."

// executeCall runs one tool call end to end: argument parsing, the approval
// gate for dangerous tools, and dispatch to the page surface. Failures
// come back as result text so the model can react; they never abort the
// turn.
func (e *Engine) executeCall(ctx context.Context, call types.ToolCallRequest) string {
	args, err := parseToolArguments(call.Arguments)
	if err != nil {
		return fmt.Sprintf("Error parsing arguments for %s: %v. Args content: %s", call.Name, err, call.Arguments)
	}

	e.emit(types.NewToolCallEvent(call.Name, args))
	e.logger.Debugf("executing tool %s", call.Name)

	if tools.IsDangerous(call.Name) {
		approved, timedOut := e.approvals.RequestApproval(ctx, call, args)
		if timedOut {
			return fmt.Sprintf("[system] approval request for tool %s timed out", call.Name)
		}
		if !approved {
			if ctx.Err() != nil {
				return "[system] tool execution canceled"
			}
			return fmt.Sprintf("[system] user manually rejected tool %s", call.Name)
		}
	}

	result, err := e.dispatch(ctx, call.Name, args)
	if err != nil {
		if ctx.Err() != nil {
			return "[system] tool execution canceled"
		}
		e.logger.Warnf("tool %s failed: %v", call.Name, err)
		return fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
	}
	return result
}

// dispatch routes an approved call to its implementation.
func (e *Engine) dispatch(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	switch name {
	case tools.ToolGetPageInteractables:
		return e.surface.Snapshot(ctx)

	case tools.ToolReadPageContent:
		page, err := e.surface.ReadContent(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[Page Title: %s]\n%s", page.Title, page.Content), nil

	case tools.ToolClickElement:
		id, err := intArg(args, "element_id")
		if err != nil {
			return "", err
		}
		e.watchdog.BeginAgentNavigation()
		defer e.watchdog.EndAgentNavigation()
		return e.surface.Click(ctx, id)

	case tools.ToolTypeText:
		id, err := intArg(args, "element_id")
		if err != nil {
			return "", err
		}
		text, _ := args["text"].(string)
		pressEnter, _ := args["press_enter"].(bool)
		e.watchdog.BeginAgentNavigation()
		defer e.watchdog.EndAgentNavigation()
		return e.surface.Type(ctx, id, text, pressEnter)

	case tools.ToolOpenURL:
		url, ok := args["url"].(string)
		if !ok || url == "" {
			return "", fmt.Errorf("url argument is required")
		}
		e.watchdog.BeginAgentNavigation()
		defer e.watchdog.EndAgentNavigation()
		return e.surface.OpenURL(ctx, url)

	case tools.ToolAnalyzeScreenshot:
		return e.analyzeScreenshot(ctx, args)

	case tools.ToolWebSearch:
		query, ok := args["query"].(string)
		if !ok || query == "" {
			return "", fmt.Errorf("query argument is required")
		}
		return e.fetcher.Search(ctx, query)

	case tools.ToolFetchURLContent:
		url, ok := args["url"].(string)
		if !ok || url == "" {
			return "", fmt.Errorf("url argument is required")
		}
		page, err := e.fetcher.FetchPage(ctx, url)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[Page Title: %s]\n%s", page.Title, page.Content), nil

	default:
		return fmt.Sprintf("unknown tool: %s", name), nil
	}
}

// analyzeScreenshot refreshes the overlay, captures the annotated page, and
// asks the vision model to locate the described element.
func (e *Engine) analyzeScreenshot(ctx context.Context, args map[string]interface{}) (string, error) {
	if e.vision == nil {
		return "", fmt.Errorf("vision model is not configured")
	}
	description, ok := args["target_description"].(string)
	if !ok || description == "" {
		return "", fmt.Errorf("target_description argument is required")
	}

	// The badges must be in frame before the capture.
	if _, err := e.surface.Snapshot(ctx); err != nil {
		return "", fmt.Errorf("failed to annotate page: %w", err)
	}
	image, err := e.surface.Screenshot(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf("%s\n\nFind this element: %s", visionSystemPrompt, description)
	analysis, err := e.vision.AnalyzeImage(ctx, prompt, image)
	if err != nil {
		return "", fmt.Errorf("vision analysis failed: %w", err)
	}
	return "Vision model analysis: " + analysis, nil
}

// parseToolArguments decodes tool arguments, tolerating the decoration
// models wrap around JSON: code fences and literal newlines or tabs inside
// the payload.
func parseToolArguments(raw string) (map[string]interface{}, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t':
			return ' '
		}
		return r
	}, cleaned)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "{}"
	}

	var args map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// intArg reads an integer argument, accepting the float64 JSON decoding
// produces and numeric strings some models emit.
func intArg(args map[string]interface{}, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		return int(v), nil
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", key, v)
		}
		return id, nil
	case nil:
		return 0, fmt.Errorf("%s argument is required", key)
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
