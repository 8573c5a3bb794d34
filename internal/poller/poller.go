// Package poller discovers new bridge messages, filters them through the
// dedup ledgers and trigger matching, and feeds matches to the queue.
package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stellarlinkco/avaclaw/internal/bluebubbles"
	"github.com/stellarlinkco/avaclaw/internal/convo"
	"github.com/stellarlinkco/avaclaw/internal/dedup"
	"github.com/stellarlinkco/avaclaw/internal/queue"
)

// Bridge is the read side of the message bridge.
type Bridge interface {
	QueryChats(ctx context.Context) ([]bluebubbles.Chat, error)
	QueryMessages(ctx context.Context, chatGUID string) ([]bluebubbles.Message, error)
}

// commandPrefixes always trigger regardless of the configured word.
var commandPrefixes = []string{"@character", "@unhinge", "@name"}

type Poller struct {
	bridge    Bridge
	seen      *dedup.Ledger
	processed *dedup.Ledger
	contexts  *convo.Store
	names     *convo.TriggerNames
	trigger   string
	enqueue   func(queue.Item)
	startupMs int64
	log       zerolog.Logger
}

func New(
	bridge Bridge,
	seen, processed *dedup.Ledger,
	contexts *convo.Store,
	names *convo.TriggerNames,
	trigger string,
	enqueue func(queue.Item),
	log zerolog.Logger,
) *Poller {
	return &Poller{
		bridge:    bridge,
		seen:      seen,
		processed: processed,
		contexts:  contexts,
		names:     names,
		trigger:   strings.ToLower(trigger),
		enqueue:   enqueue,
		startupMs: time.Now().UnixMilli(),
		log:       log.With().Str("component", "poller").Logger(),
	}
}

// Poll runs one discovery cycle. A failing chat fetch skips that chat
// only; the returned error covers the chat listing itself. Either way the
// next tick retries independently.
func (p *Poller) Poll(ctx context.Context) error {
	chats, err := p.bridge.QueryChats(ctx)
	if err != nil {
		return fmt.Errorf("poll chats: %w", err)
	}

	for _, chat := range chats {
		messages, err := p.bridge.QueryMessages(ctx, chat.GUID)
		if err != nil {
			p.log.Warn().Err(err).Str("chat", chat.GUID).Msg("message fetch failed, skipping chat")
			continue
		}
		p.scanChat(chat.GUID, messages)
	}

	// Keep the in-memory footprint bounded between cycles.
	p.seen.Prune()
	p.processed.Prune()
	p.contexts.PruneChats()
	return nil
}

// scanChat walks one chat's messages oldest-first (the bridge returns
// newest-first) so conversational order is preserved for context building.
func (p *Poller) scanChat(chatGUID string, messages []bluebubbles.Message) {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if p.seen.Contains(msg.GUID) {
			continue
		}
		p.seen.Add(msg.GUID)

		if msg.IsFromMe {
			continue
		}
		// Don't replay history from before this process started.
		if msg.Timestamp() < p.startupMs {
			continue
		}
		if msg.Text == "" {
			continue
		}

		if !p.matchesTrigger(chatGUID, msg.Text) {
			continue
		}
		if p.processed.Contains(msg.GUID) {
			continue
		}
		p.processed.Add(msg.GUID)

		p.log.Info().Str("chat", chatGUID).Str("msg", msg.GUID).Msg("triggered message queued")
		p.enqueue(queue.Item{
			ChatGUID:   chatGUID,
			Text:       msg.Text,
			EnqueuedAt: time.Now(),
		})
	}
}

func (p *Poller) matchesTrigger(chatGUID, text string) bool {
	lower := strings.ToLower(text)

	if strings.Contains(lower, p.trigger) {
		return true
	}
	for _, prefix := range commandPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}

	// Chat-specific conversational name, word-boundary first with a plain
	// substring fallback.
	return containsWord(lower, strings.ToLower(p.names.Get(chatGUID)))
}

func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for _, field := range strings.Fields(text) {
		trimmed := strings.TrimFunc(field, func(r rune) bool {
			return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
		})
		if strings.EqualFold(trimmed, word) {
			return true
		}
	}
	return strings.Contains(text, word)
}
