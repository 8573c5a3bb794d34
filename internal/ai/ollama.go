package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stellarlinkco/avaclaw/internal/convo"
)

const (
	// pictureSentinel is the textual stand-in for tool calling on models
	// without native support. Parsing it is this backend's job alone.
	pictureSentinel = "[REQUEST_PICTURE]"

	ollamaPictureHint = " If you want to generate and send a picture, just say [REQUEST_PICTURE] followed by your description."
)

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}

// OllamaBackend talks to a local Ollama server. It has no native tool
// calling; picture requests arrive as a sentinel token in the reply text
// and are translated into the uniform Reply form here.
type OllamaBackend struct {
	httpClient *http.Client
	baseURL    string
	model      string
	log        zerolog.Logger
}

func NewOllamaBackend(baseURL, model string, log zerolog.Logger) *OllamaBackend {
	return &OllamaBackend{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		log:        log.With().Str("component", "ollama").Logger(),
	}
}

func (o *OllamaBackend) Name() string { return "ollama" }

func (o *OllamaBackend) Complete(ctx context.Context, req Request) (Reply, error) {
	messages := make([]ollamaMessage, 0, len(req.Turns)+1)
	messages = append(messages, ollamaMessage{Role: "system", Content: req.System + ollamaPictureHint})
	for _, turn := range req.Turns {
		role := "user"
		if turn.Role == convo.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, ollamaMessage{Role: role, Content: turn.Text})
	}

	payload, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("ollama chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Reply{}, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, text)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Reply{}, fmt.Errorf("parse ollama response: %w", err)
	}

	content := chatResp.Message.Content
	if strings.Contains(content, pictureSentinel) {
		description := strings.TrimSpace(strings.ReplaceAll(content, pictureSentinel, ""))
		o.log.Debug().Str("description", description).Msg("sentinel picture request")
		return Reply{Picture: &PictureRequest{Description: description}}, nil
	}

	return Reply{Text: content}, nil
}
