// This file implements the single-acknowledgement responder over the
// gateway's interaction reply primitives. The platform accepts exactly one
// of {reply, deferred reply, message update, modal} as the initial response;
// anything after that must go through the follow-up/edit surface. The
// responder enforces that discipline so handlers never have to track
// replied/deferred state themselves.
package dispatch

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Discord REST error codes the dispatcher treats as benign races: the
// interaction expired before we answered, or another code path answered
// first. discordgo does not export constants for these.
const (
	errCodeUnknownInteraction = 10062
	errCodeAlreadyAcked       = 40060
)

// Reply is the gateway-agnostic payload for a message response.
type Reply struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	Ephemeral  bool
}

// Modal is the payload for a modal response. A modal can only ever be the
// initial acknowledgement.
type Modal struct {
	CustomID   string
	Title      string
	Components []discordgo.MessageComponent
}

// Responder is the single-acknowledgement reply surface handed to handlers.
//
// Exactly one of Reply, Update, Defer, or ShowModal acts as the initial
// acknowledgement. Initial-form calls after the acknowledgement degrade:
// Reply becomes a follow-up, Update becomes an edit, Defer is a no-op, and
// ShowModal fails (a modal cannot follow an acknowledgement).
type Responder interface {
	Reply(r Reply) error
	Update(r Reply) error
	Defer(ephemeral bool) error
	ShowModal(m Modal) error
	FollowUp(r Reply) error
	Edit(r Reply) error
	Acked() bool
}

// ErrModalAfterAck is returned when ShowModal is called after the
// interaction has already been acknowledged.
var ErrModalAfterAck = errors.New("modal cannot follow an acknowledgement")

// sessionResponder implements Responder over a discordgo session.
type sessionResponder struct {
	mu    sync.Mutex
	acked bool
	log   zerolog.Logger

	// Wire seams; overridden in tests.
	respond  func(*discordgo.InteractionResponse) error
	followUp func(*discordgo.WebhookParams) error
	edit     func(*discordgo.WebhookEdit) error
}

// NewResponder wraps one interaction of a discordgo session in a Responder.
func NewResponder(s *discordgo.Session, i *discordgo.Interaction, log zerolog.Logger) Responder {
	return &sessionResponder{
		log: log,
		respond: func(resp *discordgo.InteractionResponse) error {
			return s.InteractionRespond(i, resp)
		},
		followUp: func(p *discordgo.WebhookParams) error {
			_, err := s.FollowupMessageCreate(i, true, p)
			return err
		},
		edit: func(e *discordgo.WebhookEdit) error {
			_, err := s.InteractionResponseEdit(i, e)
			return err
		},
	}
}

func (sr *sessionResponder) Acked() bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.acked
}

// Reply sends the initial message acknowledgement, or a follow-up when the
// interaction was already acknowledged.
func (sr *sessionResponder) Reply(r Reply) error {
	sr.mu.Lock()
	if sr.acked {
		sr.mu.Unlock()
		return sr.FollowUp(r)
	}
	sr.acked = true
	sr.mu.Unlock()
	return sr.swallowBenign(sr.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: replyData(r),
	}))
}

// Update replaces the message the component was attached to, or edits the
// original response when the interaction was already acknowledged.
func (sr *sessionResponder) Update(r Reply) error {
	sr.mu.Lock()
	if sr.acked {
		sr.mu.Unlock()
		return sr.Edit(r)
	}
	sr.acked = true
	sr.mu.Unlock()
	return sr.swallowBenign(sr.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: replyData(r),
	}))
}

// Defer acknowledges with a deferred reply. A second Defer (or one after any
// acknowledgement) is a no-op.
func (sr *sessionResponder) Defer(ephemeral bool) error {
	sr.mu.Lock()
	if sr.acked {
		sr.mu.Unlock()
		return nil
	}
	sr.acked = true
	sr.mu.Unlock()
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return sr.swallowBenign(sr.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}))
}

// ShowModal opens a modal as the initial acknowledgement.
func (sr *sessionResponder) ShowModal(m Modal) error {
	sr.mu.Lock()
	if sr.acked {
		sr.mu.Unlock()
		return ErrModalAfterAck
	}
	sr.acked = true
	sr.mu.Unlock()
	return sr.swallowBenign(sr.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   m.CustomID,
			Title:      m.Title,
			Components: m.Components,
		},
	}))
}

// FollowUp sends an additional message after the acknowledgement.
func (sr *sessionResponder) FollowUp(r Reply) error {
	p := &discordgo.WebhookParams{
		Content:    r.Content,
		Embeds:     r.Embeds,
		Components: r.Components,
	}
	if r.Ephemeral {
		p.Flags = discordgo.MessageFlagsEphemeral
	}
	return sr.swallowBenign(sr.followUp(p))
}

// Edit rewrites the original response. Components are always sent, so an
// empty slice strips buttons from the message.
func (sr *sessionResponder) Edit(r Reply) error {
	content := r.Content
	components := r.Components
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return sr.swallowBenign(sr.edit(&discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &r.Embeds,
		Components: &components,
	}))
}

// swallowBenign drops the expired/already-acknowledged race errors,
// logging them at debug only.
func (sr *sessionResponder) swallowBenign(err error) error {
	if err == nil {
		return nil
	}
	if IsBenign(err) {
		sr.log.Debug().Err(err).Msg("benign interaction race swallowed")
		return nil
	}
	return err
}

// replyData converts a Reply into the gateway response payload.
func replyData(r Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:    r.Content,
		Embeds:     r.Embeds,
		Components: r.Components,
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}

// IsBenign reports whether err is one of the expected interaction races:
// the interaction expired before we answered ("unknown interaction") or it
// was already acknowledged by another path.
func IsBenign(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		switch rest.Message.Code {
		case errCodeUnknownInteraction, errCodeAlreadyAcked:
			return true
		}
	}
	return false
}
