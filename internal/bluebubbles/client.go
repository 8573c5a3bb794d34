// Package bluebubbles is a client for the BlueBubbles server REST API,
// the HTTP bridge in front of iMessage.
package bluebubbles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	chatLimit    = 500
	messageLimit = 50
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	password   string
	log        zerolog.Logger
}

func NewClient(baseURL, password string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		password:   password,
		log:        log.With().Str("component", "bluebubbles").Logger(),
	}
}

func (c *Client) buildURL(endpoint string) string {
	u := c.baseURL + "/api/v1" + endpoint
	if c.password != "" {
		u += "?password=" + url.QueryEscape(c.password)
	}
	return u
}

// tempGUID generates the caller-side idempotency token attached to every
// outbound send.
func tempGUID() string {
	return fmt.Sprintf("temp-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:9])
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(endpoint), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, text)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// QueryChats fetches up to 500 chats ordered by most recent activity.
func (c *Client) QueryChats(ctx context.Context) ([]Chat, error) {
	query := chatQuery{
		Limit:  chatLimit,
		Offset: 0,
		With:   []string{"lastMessage"},
		Sort:   "lastmessage",
	}
	var envelope apiResponse[[]Chat]
	if err := c.postJSON(ctx, "/chat/query", query, &envelope); err != nil {
		return nil, fmt.Errorf("chat query: %w", err)
	}
	if envelope.Data == nil {
		c.log.Warn().Str("error", envelope.Error).Msg("chat query returned no data")
		return nil, nil
	}
	c.log.Debug().Int("count", len(envelope.Data)).Msg("fetched chats")
	return envelope.Data, nil
}

// QueryMessages fetches up to 50 most recent messages of a chat,
// newest first.
func (c *Client) QueryMessages(ctx context.Context, chatGUID string) ([]Message, error) {
	query := messageQuery{
		ChatGUID: chatGUID,
		Limit:    messageLimit,
		Offset:   0,
		Sort:     "DESC",
	}
	var envelope apiResponse[[]Message]
	if err := c.postJSON(ctx, "/message/query", query, &envelope); err != nil {
		return nil, fmt.Errorf("message query: %w", err)
	}
	if envelope.Data == nil {
		c.log.Warn().Str("chat", chatGUID).Str("error", envelope.Error).Msg("message query returned no data")
		return nil, nil
	}
	return envelope.Data, nil
}

// SendText delivers an outbound text message with a fresh idempotency token.
func (c *Client) SendText(ctx context.Context, chatGUID, text string) error {
	req := sendTextRequest{
		ChatGUID: chatGUID,
		Message:  text,
		TempGUID: tempGUID(),
	}
	if err := c.postJSON(ctx, "/message/text", req, nil); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	c.log.Info().Str("chat", chatGUID).Msg("message sent")
	return nil
}

// SendAttachment uploads image bytes as a multipart attachment.
func (c *Client) SendAttachment(ctx context.Context, chatGUID string, data []byte, filename string) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("chatGuid", chatGUID)
	_ = form.WriteField("tempGuid", tempGUID())
	_ = form.WriteField("name", filename)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment"; filename=%q`, filename))
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("build attachment form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write attachment body: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("finish attachment form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("/message/attachment"), &buf)
	if err != nil {
		return fmt.Errorf("build attachment request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send attachment returned %d: %s", resp.StatusCode, text)
	}
	c.log.Info().Str("chat", chatGUID).Str("file", filename).Int("bytes", len(data)).Msg("attachment sent")
	return nil
}
