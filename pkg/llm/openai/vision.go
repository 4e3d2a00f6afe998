package openai

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// VisionClient implements llm.VisionProvider with a single-shot multimodal
// completion. It is independent of the streaming chat provider so the vision
// fallback can point at a different endpoint or model than the main loop.
type VisionClient struct {
	client openaisdk.Client
	model  string
}

// NewVisionClient creates a vision client for the given endpoint. An empty
// baseURL uses the SDK default.
func NewVisionClient(apiKey, baseURL, model string) *VisionClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &VisionClient{
		client: openaisdk.NewClient(opts...),
		model:  model,
	}
}

// AnalyzeImage sends the prompt together with a data-URL encoded screenshot
// and returns the model's textual analysis. Non-streaming on purpose: the
// result feeds back into the loop as a tool result, not into live display.
func (c *VisionClient) AnalyzeImage(ctx context.Context, prompt, imageDataURL string) (string, error) {
	parts := []openaisdk.ChatCompletionContentPartUnionParam{
		openaisdk.TextContentPart(prompt),
		openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{URL: imageDataURL}),
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage(parts)},
	})
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
