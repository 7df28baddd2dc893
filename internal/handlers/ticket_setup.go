package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/wizard"
)

const sessionExpiredMsg = "This setup session has expired. Run `/ticket setup` to start again."

// startTicketSetup begins a fresh wizard session for the invoking user and
// responds with the first step. Any prior session for the same user is
// discarded.
func (h *Handlers) startTicketSetup(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sess := h.Wizard.Start(ic.GuildID, ic.UserID)
	return rsp.Reply(h.wizardReply(sess, ""))
}

// wizardReply renders the session's current step, including the step's
// select menus ahead of the navigation row.
func (h *Handlers) wizardReply(sess *wizard.Session, notice string) dispatch.Reply {
	view := wizard.RenderStep(sess.Step, sess.Draft)
	view.Notice = notice
	r := viewReply(view, true)
	if rows := stepComponents(sess.Step); len(rows) > 0 {
		r.Components = append(rows, r.Components...)
	}
	return r
}

// stepComponents returns the input rows a step needs beyond navigation.
func stepComponents(step wizard.Step) []discordgo.MessageComponent {
	switch step {
	case wizard.StepChannels:
		return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			channelSelect("tsetup_channel", "Select the panel channel", discordgo.ChannelTypeGuildText),
		}}}
	case wizard.StepTicketTypes:
		return []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				channelSelect("tsetup_category", "Select the ticket category", discordgo.ChannelTypeGuildCategory),
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: "tsetup_types_open", Label: "Edit topics", Style: discordgo.SecondaryButton},
			}},
		}
	case wizard.StepAdvanced:
		return []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			channelSelect("tsetup_log", "Select a log channel (optional)", discordgo.ChannelTypeGuildText),
		}}}
	}
	return nil
}

func channelSelect(customID, placeholder string, t discordgo.ChannelType) discordgo.SelectMenu {
	return discordgo.SelectMenu{
		MenuType:     discordgo.ChannelSelectMenu,
		CustomID:     customID,
		Placeholder:  placeholder,
		ChannelTypes: []discordgo.ChannelType{t},
	}
}

func (h *Handlers) handleWizardNext(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sess, err := h.Wizard.Next(ic.GuildID, ic.UserID)
	return h.updateWizardMessage(sess, err, rsp)
}

func (h *Handlers) handleWizardBack(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sess, err := h.Wizard.Back(ic.GuildID, ic.UserID)
	return h.updateWizardMessage(sess, err, rsp)
}

func (h *Handlers) handleWizardCancel(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	if !h.Wizard.Cancel(ic.GuildID, ic.UserID) {
		return rsp.Update(finalText(sessionExpiredMsg))
	}
	return rsp.Update(finalText("Ticket setup cancelled. Nothing was saved."))
}

func (h *Handlers) handleWizardConfirm(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	err := h.Wizard.Confirm(ctx, ic.GuildID, ic.UserID)
	switch {
	case err == nil:
		return rsp.Update(finalText("Ticket system configured. Post the panel with `/ticket panel`."))
	case errors.Is(err, wizard.ErrNoSession):
		return rsp.Update(finalText(sessionExpiredMsg))
	default:
		var verr *wizard.ValidationError
		var perr *wizard.PersistError
		sess, gerr := h.Wizard.Get(ic.GuildID, ic.UserID)
		if gerr != nil {
			return rsp.Update(finalText(sessionExpiredMsg))
		}
		switch {
		case errors.As(err, &verr):
			return rsp.Update(h.wizardReply(sess, fmt.Sprintf("Missing required field: %s.", verr.Field)))
		case errors.As(err, &perr):
			return rsp.Update(h.wizardReply(sess, "Saving failed. Your draft is intact; try confirming again."))
		case errors.Is(err, wizard.ErrNotReview):
			return rsp.Update(h.wizardReply(sess, "Review the configuration before confirming."))
		default:
			return err
		}
	}
}

// handleWizardChannelSelect records the panel channel choice.
func (h *Handlers) handleWizardChannelSelect(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	return h.recordSelection(ic, rsp, wizard.FieldChannelID)
}

func (h *Handlers) handleWizardCategorySelect(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	return h.recordSelection(ic, rsp, wizard.FieldCategoryID)
}

func (h *Handlers) handleWizardLogSelect(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	return h.recordSelection(ic, rsp, wizard.FieldLogChannelID)
}

func (h *Handlers) recordSelection(ic *dispatch.Interaction, rsp dispatch.Responder, field string) error {
	if len(ic.Values) == 0 {
		return rsp.Update(finalText(genericSelectionMsg))
	}
	sess, err := h.Wizard.UpdateField(ic.GuildID, ic.UserID, field, ic.Values[0])
	return h.updateWizardMessage(sess, err, rsp)
}

const genericSelectionMsg = "Nothing was selected. Pick an option from the menu."

// handleWizardTypesOpen shows the topics modal. Modals must be the first
// acknowledgement of an interaction, so this route never defers.
func (h *Handlers) handleWizardTypesOpen(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sess, err := h.Wizard.Get(ic.GuildID, ic.UserID)
	if err != nil {
		return rsp.Update(finalText(sessionExpiredMsg))
	}
	return rsp.ShowModal(dispatch.Modal{
		CustomID: "tsetup_types_modal",
		Title:    "Ticket Topics",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    "topics",
					Label:       "Topics, comma separated",
					Style:       discordgo.TextInputShort,
					Placeholder: "support, billing, report",
					Value:       sess.Draft[wizard.FieldTicketTypes],
					MaxLength:   200,
				},
			}},
		},
	})
}

// handleWizardTypesModal stores the submitted topic list. A modal submit
// arrives on a fresh interaction without the wizard message attached, so
// the response is a new ephemeral rendering of the current step.
func (h *Handlers) handleWizardTypesModal(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sess, err := h.Wizard.UpdateField(ic.GuildID, ic.UserID, wizard.FieldTicketTypes, ic.Fields["topics"])
	if err != nil {
		if errors.Is(err, wizard.ErrNoSession) {
			return rsp.Reply(ephemeralText(sessionExpiredMsg))
		}
		return err
	}
	return rsp.Reply(h.wizardReply(sess, "Topics updated."))
}

// updateWizardMessage folds the common post-mutation response: re-render on
// success, expiry notice when the session is gone.
func (h *Handlers) updateWizardMessage(sess *wizard.Session, err error, rsp dispatch.Responder) error {
	if err != nil {
		if errors.Is(err, wizard.ErrNoSession) {
			return rsp.Update(finalText(sessionExpiredMsg))
		}
		var verr *wizard.ValidationError
		if errors.As(err, &verr) && sess != nil {
			return rsp.Update(h.wizardReply(sess, fmt.Sprintf("Missing required field: %s.", verr.Field)))
		}
		return err
	}
	return rsp.Update(h.wizardReply(sess, ""))
}
