// Package gateway wires the bridge client, poller, queue, command
// interpreter, and AI backends into one running process.
package gateway

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/avaclaw/internal/ai"
	"github.com/stellarlinkco/avaclaw/internal/bluebubbles"
	"github.com/stellarlinkco/avaclaw/internal/command"
	"github.com/stellarlinkco/avaclaw/internal/config"
	"github.com/stellarlinkco/avaclaw/internal/convo"
	"github.com/stellarlinkco/avaclaw/internal/dedup"
	"github.com/stellarlinkco/avaclaw/internal/poller"
	"github.com/stellarlinkco/avaclaw/internal/queue"
)

const (
	pollSchedule        = "@every 3s"
	maintenanceSchedule = "@every 5m"

	// signature is appended to every conversational reply so group members
	// can tell the relay's messages from the account owner's.
	signature = "\n\n– ava"

	imageFilename   = "generated-image.png"
	imageSentReply  = "✅ Generated and sent a picture!"
	imageFailReply  = "❌ Failed to generate image. Please try again."
	processingError = "❌ Error processing message. Please try again."
)

// Bridge is everything the gateway needs from the message bridge.
type Bridge interface {
	QueryChats(ctx context.Context) ([]bluebubbles.Chat, error)
	QueryMessages(ctx context.Context, chatGUID string) ([]bluebubbles.Message, error)
	SendText(ctx context.Context, chatGUID, text string) error
	SendAttachment(ctx context.Context, chatGUID string, data []byte, filename string) error
}

// ImageGenerator renders a description into image bytes.
type ImageGenerator interface {
	Generate(ctx context.Context, description string) ([]byte, error)
}

// Options carries test hooks.
type Options struct {
	Bridge     Bridge
	Standard   ai.Backend
	Unhinged   ai.Backend
	Images     ImageGenerator
	Synth      command.PersonaSynthesizer
	SignalChan chan os.Signal
}

type Gateway struct {
	cfg      *config.Config
	bridge   Bridge
	standard ai.Backend
	unhinged ai.Backend
	images   ImageGenerator

	contexts   *convo.Store
	characters *convo.Characters
	names      *convo.TriggerNames
	interp     *command.Interpreter

	// unhingedMode switches every chat at once between backends.
	unhingedMode atomic.Bool

	queue  *queue.Queue
	poller *poller.Poller
	cron   *rcron.Cron

	signalChan chan os.Signal
	log        zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) *Gateway {
	return NewWithOptions(cfg, Options{}, log)
}

// NewWithOptions lets tests inject fakes for the bridge and backends.
func NewWithOptions(cfg *config.Config, opts Options, log zerolog.Logger) *Gateway {
	g := &Gateway{
		cfg:        cfg,
		contexts:   convo.NewStore(),
		characters: convo.NewCharacters(),
		names:      convo.NewTriggerNames(strings.TrimPrefix(cfg.Trigger.Word, "@")),
		signalChan: opts.SignalChan,
		log:        log.With().Str("component", "gateway").Logger(),
	}

	g.bridge = opts.Bridge
	if g.bridge == nil {
		g.bridge = bluebubbles.NewClient(cfg.Bridge.URL, cfg.Bridge.Password, log)
	}

	var synth command.PersonaSynthesizer = opts.Synth
	g.standard = opts.Standard
	if g.standard == nil || synth == nil {
		openaiBackend := ai.NewOpenAIBackend(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, log)
		if g.standard == nil {
			g.standard = openaiBackend
		}
		if synth == nil {
			synth = openaiBackend
		}
	}
	g.unhinged = opts.Unhinged
	if g.unhinged == nil {
		g.unhinged = ai.NewOllamaBackend(cfg.Ollama.URL, cfg.Ollama.Model, log)
	}
	g.images = opts.Images
	if g.images == nil {
		g.images = ai.NewImageGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ImageModel, log)
	}

	g.interp = command.NewInterpreter(
		synth,
		g.bridge,
		g.contexts,
		g.characters,
		g.names,
		g.unhingedMode.Store,
		log,
	)

	g.queue = queue.New(g.processItem, g.onFailure, log)

	seen := dedup.NewLedger(dedup.DefaultMax, dedup.DefaultKeep)
	processed := dedup.NewLedger(dedup.DefaultMax, dedup.DefaultKeep)
	g.poller = poller.New(g.bridge, seen, processed, g.contexts, g.names, cfg.Trigger.Word, g.queue.Enqueue, log)

	return g
}

// Run blocks until the context is cancelled or a shutdown signal arrives.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.queue.Run(ctx)

	g.cron = rcron.New(rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)))
	if _, err := g.cron.AddFunc(pollSchedule, func() {
		if err := g.poller.Poll(ctx); err != nil {
			g.log.Error().Err(err).Msg("poll cycle failed")
		}
	}); err != nil {
		return err
	}
	if _, err := g.cron.AddFunc(maintenanceSchedule, func() {
		g.log.Info().
			Int("queued", g.queue.Len()).
			Int("chats", g.contexts.Chats()).
			Bool("unhinged", g.unhingedMode.Load()).
			Msg("status")
	}); err != nil {
		return err
	}
	g.cron.Start()

	g.log.Info().Str("bridge", g.cfg.Bridge.URL).Str("trigger", g.cfg.Trigger.Word).Msg("running")

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}

	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	g.log.Info().Msg("shutting down")
	return g.Shutdown()
}

func (g *Gateway) Shutdown() error {
	if g.cron != nil {
		<-g.cron.Stop().Done()
	}
	g.log.Info().Msg("shutdown complete")
	return nil
}

func (g *Gateway) backend() ai.Backend {
	if g.unhingedMode.Load() {
		return g.unhinged
	}
	return g.standard
}

// processItem handles one queued message end to end. A returned error
// reaches onFailure; the item is never retried.
func (g *Gateway) processItem(ctx context.Context, item queue.Item) error {
	if g.interp.Handle(ctx, item.ChatGUID, item.Text) {
		return nil
	}

	g.contexts.Append(item.ChatGUID, convo.Turn{Role: convo.RoleUser, Text: item.Text})

	persona, ok := g.characters.Get(item.ChatGUID)
	if !ok {
		persona = ai.DefaultPersona
	}

	backend := g.backend()
	reply, err := backend.Complete(ctx, ai.Request{
		System: persona,
		Turns:  g.contexts.Turns(item.ChatGUID),
	})
	if err != nil {
		return err
	}

	text := reply.Text
	if reply.Picture != nil {
		text = g.deliverPicture(ctx, item.ChatGUID, reply.Picture.Description)
	}

	// An empty reply is still a reply: it gets the signature and goes out.
	if !strings.HasSuffix(text, signature) {
		text += signature
	}
	g.contexts.Append(item.ChatGUID, convo.Turn{Role: convo.RoleAssistant, Text: text})
	return g.bridge.SendText(ctx, item.ChatGUID, text)
}

// deliverPicture generates and sends the image, returning the status text
// for the follow-up message.
func (g *Gateway) deliverPicture(ctx context.Context, chatGUID, description string) string {
	data, err := g.images.Generate(ctx, description)
	if err != nil {
		g.log.Error().Err(err).Str("chat", chatGUID).Msg("image generation failed")
		return imageFailReply
	}
	if err := g.bridge.SendAttachment(ctx, chatGUID, data, imageFilename); err != nil {
		g.log.Error().Err(err).Str("chat", chatGUID).Msg("attachment send failed")
		return imageFailReply
	}
	return imageSentReply
}

func (g *Gateway) onFailure(ctx context.Context, item queue.Item, err error) {
	g.log.Error().Err(err).Str("chat", item.ChatGUID).Msg("message processing failed")
	if sendErr := g.bridge.SendText(ctx, item.ChatGUID, processingError); sendErr != nil {
		g.log.Error().Err(sendErr).Str("chat", item.ChatGUID).Msg("error notice send failed")
	}
}
