package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// fakeWire captures every call the responder makes to the reply primitives.
type fakeWire struct {
	responses []*discordgo.InteractionResponse
	followUps []*discordgo.WebhookParams
	edits     []*discordgo.WebhookEdit

	respondErr error
}

func newFakeResponder(w *fakeWire) *sessionResponder {
	return &sessionResponder{
		log: zerolog.Nop(),
		respond: func(r *discordgo.InteractionResponse) error {
			w.responses = append(w.responses, r)
			return w.respondErr
		},
		followUp: func(p *discordgo.WebhookParams) error {
			w.followUps = append(w.followUps, p)
			return nil
		},
		edit: func(e *discordgo.WebhookEdit) error {
			w.edits = append(w.edits, e)
			return nil
		},
	}
}

func restError(code int) error {
	return fmt.Errorf("wrapped: %w", &discordgo.RESTError{
		Response: &http.Response{StatusCode: 400},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "x"},
	})
}

func TestResponder_SecondReplyBecomesFollowUp(t *testing.T) {
	w := &fakeWire{}
	sr := newFakeResponder(w)

	if err := sr.Reply(Reply{Content: "first", Ephemeral: true}); err != nil {
		t.Fatalf("first reply: %v", err)
	}
	if err := sr.Reply(Reply{Content: "second"}); err != nil {
		t.Fatalf("second reply: %v", err)
	}

	if len(w.responses) != 1 {
		t.Fatalf("initial response primitive must run exactly once, got %d", len(w.responses))
	}
	if w.responses[0].Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Fatalf("unexpected initial response type: %v", w.responses[0].Type)
	}
	if w.responses[0].Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatalf("ephemeral flag lost")
	}
	if len(w.followUps) != 1 || w.followUps[0].Content != "second" {
		t.Fatalf("second reply must degrade to a follow-up, got %+v", w.followUps)
	}
}

func TestResponder_UpdateAfterAckBecomesEdit(t *testing.T) {
	w := &fakeWire{}
	sr := newFakeResponder(w)

	if err := sr.Defer(true); err != nil {
		t.Fatalf("defer: %v", err)
	}
	if err := sr.Update(Reply{Content: "done"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(w.responses) != 1 || w.responses[0].Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected a single deferred ack, got %+v", w.responses)
	}
	if len(w.edits) != 1 || *w.edits[0].Content != "done" {
		t.Fatalf("update after ack must go through edit, got %+v", w.edits)
	}
	// Edit always sends components so finished prompts lose their buttons.
	if w.edits[0].Components == nil || len(*w.edits[0].Components) != 0 {
		t.Fatalf("edit must carry an explicit empty component list, got %+v", w.edits[0].Components)
	}
}

func TestResponder_DeferTwiceIsNoOp(t *testing.T) {
	w := &fakeWire{}
	sr := newFakeResponder(w)

	if err := sr.Defer(false); err != nil {
		t.Fatalf("first defer: %v", err)
	}
	if err := sr.Defer(false); err != nil {
		t.Fatalf("second defer: %v", err)
	}
	if len(w.responses) != 1 {
		t.Fatalf("defer must acknowledge once, got %d calls", len(w.responses))
	}
}

func TestResponder_ModalAfterAckFails(t *testing.T) {
	w := &fakeWire{}
	sr := newFakeResponder(w)

	if err := sr.Reply(Reply{Content: "hi"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	err := sr.ShowModal(Modal{CustomID: "m", Title: "T"})
	if !errors.Is(err, ErrModalAfterAck) {
		t.Fatalf("expected ErrModalAfterAck, got %v", err)
	}
	if len(w.responses) != 1 {
		t.Fatalf("rejected modal must not hit the wire")
	}
}

func TestResponder_SwallowsBenignRaces(t *testing.T) {
	for _, code := range []int{10062, 40060} {
		w := &fakeWire{respondErr: restError(code)}
		sr := newFakeResponder(w)
		if err := sr.Reply(Reply{Content: "hi"}); err != nil {
			t.Errorf("code %d must be swallowed, got %v", code, err)
		}
	}

	w := &fakeWire{respondErr: restError(50013)}
	sr := newFakeResponder(w)
	if err := sr.Reply(Reply{Content: "hi"}); err == nil {
		t.Fatalf("non-benign REST errors must propagate")
	}
}

func TestIsBenign(t *testing.T) {
	if !IsBenign(restError(10062)) || !IsBenign(restError(40060)) {
		t.Fatalf("expired/already-acked codes are benign")
	}
	if IsBenign(errors.New("plain")) {
		t.Fatalf("plain errors are not benign")
	}
	if IsBenign(nil) {
		t.Fatalf("nil is not benign")
	}
}
