// Package command recognizes and executes the in-band @ commands embedded
// in message text. Parsing produces a closed variant set so the dispatcher
// can never silently fall through on a new command.
package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stellarlinkco/avaclaw/internal/convo"
)

// Command is one of CharacterCommand, UnhingeCommand, NameCommand.
type Command interface {
	isCommand()
}

type CharacterCommand struct {
	Description string
}

type UnhingeCommand struct {
	Enabled bool
}

type NameCommand struct {
	TriggerName string
}

func (CharacterCommand) isCommand() {}
func (UnhingeCommand) isCommand()   {}
func (NameCommand) isCommand()      {}

var (
	characterRe = regexp.MustCompile(`(?i)@character\s+(.+)`)
	unhingeRe   = regexp.MustCompile(`(?i)@unhinge\s+(\S+)`)
	nameRe      = regexp.MustCompile(`(?i)@name\s+([a-zA-Z0-9]+)`)
)

// Parse returns the command embedded in text, or nil for a normal message.
// Matching is case-insensitive and not anchored to the start of the text.
func Parse(text string) Command {
	text = strings.TrimSpace(text)

	if m := characterRe.FindStringSubmatch(text); m != nil {
		description := strings.TrimSpace(m[1])
		if description != "" {
			return CharacterCommand{Description: description}
		}
	}

	if m := unhingeRe.FindStringSubmatch(text); m != nil {
		// Only the literal token "true" enables; anything else disables.
		return UnhingeCommand{Enabled: strings.EqualFold(strings.TrimSpace(m[1]), "true")}
	}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		return NameCommand{TriggerName: strings.ToLower(m[1])}
	}

	return nil
}

// PersonaSynthesizer turns a character description into a persona system
// prompt. Always the hosted backend, regardless of the unhinge flag.
type PersonaSynthesizer interface {
	SynthesizePersona(ctx context.Context, description string) (string, error)
}

// Sender delivers replies back to the bridge.
type Sender interface {
	SendText(ctx context.Context, chatGUID, text string) error
}

// Interpreter executes command side effects. It runs before any AI
// dispatch and must always complete: every failure path degrades to a
// logged fallback, never an error.
type Interpreter struct {
	synth      PersonaSynthesizer
	sender     Sender
	contexts   *convo.Store
	characters *convo.Characters
	names      *convo.TriggerNames
	setUnhinge func(bool)
	log        zerolog.Logger
}

func NewInterpreter(
	synth PersonaSynthesizer,
	sender Sender,
	contexts *convo.Store,
	characters *convo.Characters,
	names *convo.TriggerNames,
	setUnhinge func(bool),
	log zerolog.Logger,
) *Interpreter {
	return &Interpreter{
		synth:      synth,
		sender:     sender,
		contexts:   contexts,
		characters: characters,
		names:      names,
		setUnhinge: setUnhinge,
		log:        log.With().Str("component", "command").Logger(),
	}
}

// Handle executes text as a command if it is one. Returns true when the
// message was a command and normal AI processing should be skipped.
func (i *Interpreter) Handle(ctx context.Context, chatGUID, text string) bool {
	cmd := Parse(text)
	if cmd == nil {
		return false
	}

	switch c := cmd.(type) {
	case CharacterCommand:
		i.handleCharacter(ctx, chatGUID, c.Description)
	case UnhingeCommand:
		i.log.Info().Bool("enabled", c.Enabled).Str("chat", chatGUID).Msg("unhinge toggled")
		i.setUnhinge(c.Enabled)
		// No user-visible reply for this one.
	case NameCommand:
		i.handleName(ctx, chatGUID, c.TriggerName)
	}
	return true
}

func (i *Interpreter) handleCharacter(ctx context.Context, chatGUID, description string) {
	persona, err := i.synth.SynthesizePersona(ctx, description)
	if err != nil || strings.TrimSpace(persona) == "" {
		i.log.Warn().Err(err).Str("chat", chatGUID).Msg("persona synthesis failed, using fallback")
		persona = fmt.Sprintf("You are %s. Embody this character fully.", description)
	}

	i.characters.Set(chatGUID, persona)
	// Switching characters invalidates the running conversation.
	i.contexts.Clear(chatGUID)

	reply := fmt.Sprintf("✅ Character updated! I'm now: %s", description)
	if err := i.sender.SendText(ctx, chatGUID, reply); err != nil {
		i.log.Error().Err(err).Str("chat", chatGUID).Msg("send character confirmation failed")
	}
}

func (i *Interpreter) handleName(ctx context.Context, chatGUID, name string) {
	if len(name) > 20 {
		i.reply(ctx, chatGUID, "❌ Trigger name must be 1-20 characters long")
		return
	}

	old := i.names.Get(chatGUID)
	i.names.Set(chatGUID, name)
	i.reply(ctx, chatGUID, fmt.Sprintf(
		"✅ Trigger name changed from '%s' to '%s'. You can now say '%s, hello!' instead of using @",
		old, name, name,
	))
}

func (i *Interpreter) reply(ctx context.Context, chatGUID, text string) {
	if err := i.sender.SendText(ctx, chatGUID, text); err != nil {
		i.log.Error().Err(err).Str("chat", chatGUID).Msg("send command reply failed")
	}
}
