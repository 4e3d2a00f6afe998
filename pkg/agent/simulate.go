package agent

import (
	"fmt"

	"github.com/tabpilot/tabpilot/pkg/agent/tools"
	"github.com/tabpilot/tabpilot/pkg/types"
)

// simulatedResult fabricates a plausible result for a tag-grammar tool
// call. Extracted calls were never issued by the endpoint, so executing
// them for real would let a hallucinated transcript drive the page; they
// are answered with simulations and the model decides how to continue.
func simulatedResult(call types.ToolCallRequest) string {
	args, err := parseToolArguments(call.Arguments)
	if err != nil {
		args = map[string]interface{}{}
	}

	switch call.Name {
	case tools.ToolOpenURL:
		if url, ok := args["url"].(string); ok && url != "" {
			return fmt.Sprintf("Successfully opened URL: %s. [simulated] page content loaded.", url)
		}
		return "Attempted to open URL: (argument parsing failed). [simulated] page content loaded."

	case tools.ToolGetPageInteractables:
		return "[simulated] page interactables captured. Continue based on this information."

	case tools.ToolReadPageContent:
		return "[simulated] page content read."

	case tools.ToolClickElement:
		return fmt.Sprintf("[simulated] attempted click on element ID: %v. Page updated.", args["element_id"])

	case tools.ToolTypeText:
		return fmt.Sprintf("[simulated] attempted to type into element ID: %v.", args["element_id"])

	default:
		return fmt.Sprintf("[simulated] tool %s executed successfully.", call.Name)
	}
}
