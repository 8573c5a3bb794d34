package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/avaclaw/internal/convo"
)

const (
	pictureToolName = "request_picture"

	// Appended to the persona so the model knows how to ask for an image
	// on this backend.
	openAIPictureHint = " If you want to generate and send a picture or image, use the request_picture tool with a detailed description of what image you want to create."

	personaMetaPrompt = `You are a prompt engineer. Generate a detailed system prompt for an AI character based on the user's description. The prompt should:
1. Define the character's personality, mannerisms, and speaking style
2. Include specific behavioral traits and quirks
3. Be detailed enough to create a consistent character persona
4. Start with "You are [character description]..."

Keep it concise but comprehensive. Return only the system prompt, nothing else.`
)

// OpenAIBackend talks to the hosted chat-completion API with native tool
// calling. It also hosts persona synthesis, which always runs here
// regardless of which backend serves normal traffic.
type OpenAIBackend struct {
	client openai.Client
	model  string
	log    zerolog.Logger
}

func NewOpenAIBackend(apiKey, baseURL, model string, log zerolog.Logger) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		model:  model,
		log:    log.With().Str("component", "openai").Logger(),
	}
}

func (o *OpenAIBackend) Name() string { return "openai" }

func pictureTool() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{{
		OfFunction: &openai.ChatCompletionFunctionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        pictureToolName,
				Description: openai.String("Generate and send a picture to the chat"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{
							"type":        "string",
							"description": "Detailed description of the picture to generate",
						},
					},
					"required": []string{"description"},
				},
			},
		},
	}}
}

func toChatMessages(system string, turns []convo.Turn) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(system))
	for _, turn := range turns {
		switch turn.Role {
		case convo.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Text))
		default:
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	return messages
}

func (o *OpenAIBackend) Complete(ctx context.Context, req Request) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    toChatMessages(req.System+openAIPictureHint, req.Turns),
		Temperature: openai.Float(0.7),
		Tools:       pictureTool(),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Reply{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, fmt.Errorf("openai chat completion: no choices in response")
	}

	message := resp.Choices[0].Message
	for _, call := range message.ToolCalls {
		if call.Function.Name != pictureToolName {
			continue
		}
		var args struct {
			Description string `json:"description"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			o.log.Warn().Err(err).Msg("unparseable tool call arguments")
			continue
		}
		return Reply{Picture: &PictureRequest{Description: args.Description}}, nil
	}

	return Reply{Text: message.Content}, nil
}

// SynthesizePersona asks the hosted model to turn a character description
// into a full persona system prompt.
func (o *OpenAIBackend) SynthesizePersona(ctx context.Context, description string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(personaMetaPrompt),
			openai.UserMessage(description),
		},
		Temperature: openai.Float(0.7),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("persona synthesis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("persona synthesis: no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
