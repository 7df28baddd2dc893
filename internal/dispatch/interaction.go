// Package dispatch routes inbound gateway interactions to feature handlers.
//
// It owns the three guarantees the rest of the bot relies on:
//
//   - at-most-once handling per interaction id (Guard), even when the
//     gateway re-delivers an event after a reconnect or replay;
//   - exactly one initial acknowledgement per interaction (Responder), with
//     later responses transparently degraded to follow-up/edit calls;
//   - data-driven custom-id routing with longest-prefix selection (Router),
//     so button and select-menu ids land on exactly one handler.
//
// Handlers receive a gateway-agnostic Interaction plus a Responder; the
// concrete Discord session stays behind the Responder implementation.
package dispatch

import (
	"github.com/bwmarrin/discordgo"
)

// Interaction kinds, mirroring the gateway's interaction types that carry a
// user action.
const (
	KindCommand   = "command"
	KindComponent = "component"
	KindModal     = "modal"
)

// Interaction is the gateway-agnostic view of one inbound user action.
type Interaction struct {
	ID        string
	Kind      string
	Command   string // slash command name (KindCommand)
	CustomID  string // component / modal custom id
	GuildID   string
	ChannelID string
	MessageID string // message the component was attached to, if any
	UserID    string
	Values    []string          // select menu selections
	Fields    map[string]string // modal text inputs keyed by custom id

	// Raw keeps the underlying gateway event for handlers that need
	// command options or member details beyond the flattened view.
	Raw *discordgo.InteractionCreate
}

// RouteKey returns the string the router matches against: the command name
// for slash commands, the custom id for components and modal submissions.
func (ic *Interaction) RouteKey() string {
	if ic.Kind == KindCommand {
		return ic.Command
	}
	return ic.CustomID
}

// FromInteractionCreate flattens a gateway interaction event into an
// Interaction. Unsupported interaction types (e.g. PING, autocomplete)
// return nil and must be ignored by the caller.
func FromInteractionCreate(ev *discordgo.InteractionCreate) *Interaction {
	ic := &Interaction{
		ID:        ev.ID,
		GuildID:   ev.GuildID,
		ChannelID: ev.ChannelID,
		Raw:       ev,
	}
	if ev.Member != nil && ev.Member.User != nil {
		ic.UserID = ev.Member.User.ID
	} else if ev.User != nil {
		ic.UserID = ev.User.ID
	}
	if ev.Message != nil {
		ic.MessageID = ev.Message.ID
	}

	switch ev.Type {
	case discordgo.InteractionApplicationCommand:
		ic.Kind = KindCommand
		ic.Command = ev.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		ic.Kind = KindComponent
		data := ev.MessageComponentData()
		ic.CustomID = data.CustomID
		ic.Values = data.Values
	case discordgo.InteractionModalSubmit:
		ic.Kind = KindModal
		data := ev.ModalSubmitData()
		ic.CustomID = data.CustomID
		ic.Fields = flattenModalInputs(data.Components)
	default:
		return nil
	}
	return ic
}

// flattenModalInputs walks the submitted component tree and collects text
// inputs keyed by their custom id.
func flattenModalInputs(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, row := range rows {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if ti, ok := comp.(*discordgo.TextInput); ok {
				out[ti.CustomID] = ti.Value
			}
		}
	}
	return out
}
