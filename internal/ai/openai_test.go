package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stellarlinkco/avaclaw/internal/convo"
)

// completionServer fakes the chat-completions endpoint and captures the
// raw request body for assertions.
func completionServer(t *testing.T, response map[string]any, capture *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Fatal(err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func textChoice(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestOpenAIComplete_Text(t *testing.T) {
	var got map[string]any
	srv := completionServer(t, textChoice("hey!"), &got)
	b := NewOpenAIBackend("test-key", srv.URL, "gpt-4o", zerolog.Nop())

	reply, err := b.Complete(context.Background(), Request{
		System: "You are a pirate.",
		Turns:  []convo.Turn{{Role: convo.RoleUser, Text: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply.Text != "hey!" || reply.Picture != nil {
		t.Errorf("reply = %+v", reply)
	}

	if got["model"] != "gpt-4o" {
		t.Errorf("model = %v", got["model"])
	}
	msgs := got["messages"].([]any)
	system := msgs[0].(map[string]any)
	if system["role"] != "system" {
		t.Errorf("first message role = %v", system["role"])
	}
	if !strings.Contains(system["content"].(string), "request_picture tool") {
		t.Error("system prompt should carry the tool usage hint")
	}
	tools := got["tools"].([]any)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	if fn["name"] != "request_picture" {
		t.Errorf("tool name = %v", fn["name"])
	}
}

func TestOpenAIComplete_ToolCall(t *testing.T) {
	srv := completionServer(t, map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{
				"role":    "assistant",
				"content": "on it",
				"tool_calls": []map[string]any{{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      "request_picture",
						"arguments": `{"description":"a red bicycle"}`,
					},
				}},
			},
		}},
	}, nil)
	b := NewOpenAIBackend("test-key", srv.URL, "gpt-4o", zerolog.Nop())

	reply, err := b.Complete(context.Background(), Request{System: DefaultPersona})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if reply.Picture == nil {
		t.Fatal("tool call should produce a picture request")
	}
	if reply.Picture.Description != "a red bicycle" {
		t.Errorf("description = %q", reply.Picture.Description)
	}
}

func TestOpenAIComplete_NoChoices(t *testing.T) {
	srv := completionServer(t, map[string]any{"choices": []any{}}, nil)
	b := NewOpenAIBackend("test-key", srv.URL, "gpt-4o", zerolog.Nop())

	if _, err := b.Complete(context.Background(), Request{System: DefaultPersona}); err == nil {
		t.Error("expected error on empty choices")
	}
}

func TestSynthesizePersona(t *testing.T) {
	var got map[string]any
	srv := completionServer(t, textChoice("  You are a witty pirate captain.  \n"), &got)
	b := NewOpenAIBackend("test-key", srv.URL, "gpt-4o", zerolog.Nop())

	persona, err := b.SynthesizePersona(context.Background(), "pirate")
	if err != nil {
		t.Fatalf("SynthesizePersona error: %v", err)
	}
	if persona != "You are a witty pirate captain." {
		t.Errorf("persona = %q, want trimmed result", persona)
	}

	msgs := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("len(messages) = %d, want meta prompt + description", len(msgs))
	}
	if !strings.Contains(msgs[0].(map[string]any)["content"].(string), "prompt engineer") {
		t.Error("meta prompt missing")
	}
	if msgs[1].(map[string]any)["content"] != "pirate" {
		t.Errorf("user message = %v", msgs[1])
	}
	if _, hasTools := got["tools"]; hasTools {
		t.Error("persona synthesis must not offer tools")
	}
}
