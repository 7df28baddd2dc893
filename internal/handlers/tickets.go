package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/domain"
	"guildkeeper/internal/repo"
	"guildkeeper/internal/wizard"
)

// maxOpenTicketsPerUser caps concurrent tickets for a single member.
const maxOpenTicketsPerUser = 3

// TicketConfigPersister saves a completed wizard draft as the guild's ticket
// configuration. It satisfies wizard.Persister.
type TicketConfigPersister struct {
	DB *gorm.DB
}

// SaveTicketConfig writes the draft's fields in one upsert.
func (p *TicketConfigPersister) SaveTicketConfig(ctx context.Context, guildID string, draft map[string]string) error {
	return repo.UpsertTicketConfig(ctx, p.DB, guildID, map[string]any{
		"ticket_panel_channel": draft[wizard.FieldChannelID],
		"ticket_category":      draft[wizard.FieldCategoryID],
		"ticket_types":         normalizeTopics(draft[wizard.FieldTicketTypes]),
		"ticket_log_channel":   draft[wizard.FieldLogChannelID],
	})
}

// normalizeTopics trims and deduplicates a comma-separated topic list,
// falling back to a single "support" topic when empty.
func normalizeTopics(raw string) string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return "support"
	}
	return strings.Join(out, ",")
}

func (h *Handlers) handleTicketCommand(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sub := subcommand(ic)
	if sub == nil {
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
	switch sub.Name {
	case "setup":
		return h.startTicketSetup(ctx, ic, rsp)
	case "panel":
		return h.postTicketPanel(ctx, ic, rsp)
	case "list":
		return h.listOpenTickets(ctx, ic, rsp)
	default:
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
}

// postTicketPanel sends the public panel message with a topic select into
// the configured panel channel.
func (h *Handlers) postTicketPanel(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	cfg, err := repo.GetGuildConfig(ctx, h.DB, ic.GuildID)
	if err != nil {
		return fmt.Errorf("loading guild config: %w", err)
	}
	if cfg.TicketPanelChannel == "" || cfg.TicketCategory == "" {
		return rsp.Reply(ephemeralText("The ticket system is not configured yet. Run `/ticket setup` first."))
	}

	var options []discordgo.SelectMenuOption
	for _, topic := range strings.Split(cfg.TicketTypes, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		options = append(options, discordgo.SelectMenuOption{
			Label: topic,
			Value: topic,
			Emoji: &discordgo.ComponentEmoji{Name: "🎫"},
		})
	}
	if len(options) == 0 {
		options = append(options, discordgo.SelectMenuOption{Label: "support", Value: "support"})
	}

	_, err = h.Discord.ChannelMessageSendComplex(cfg.TicketPanelChannel, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Support Tickets",
			Description: "Pick a topic below to open a private ticket with the staff team.",
			Color:       0x5865F2,
		}},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    "ticket_open",
				Placeholder: "Open a ticket...",
				Options:     options,
			},
		}}},
	})
	if err != nil {
		return fmt.Errorf("posting ticket panel: %w", err)
	}
	return rsp.Reply(ephemeralText(fmt.Sprintf("Panel posted in <#%s>.", cfg.TicketPanelChannel)))
}

func (h *Handlers) listOpenTickets(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	tickets, err := repo.ListOpenTickets(ctx, h.DB, ic.GuildID)
	if err != nil {
		return fmt.Errorf("listing open tickets: %w", err)
	}
	if len(tickets) == 0 {
		return rsp.Reply(ephemeralText("No open tickets."))
	}
	var b strings.Builder
	for _, t := range tickets {
		fmt.Fprintf(&b, "`#%04d` <#%s> by <@%s>", t.Number, t.ChannelID, t.UserID)
		if t.ClaimedBy != "" {
			fmt.Fprintf(&b, " — claimed by <@%s>", t.ClaimedBy)
		}
		b.WriteString("\n")
	}
	return rsp.Reply(dispatch.Reply{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("Open tickets (%d)", len(tickets)),
			Description: b.String(),
			Color:       0x5865F2,
		}},
		Ephemeral: true,
	})
}

// handleTicketOpenSelect creates the ticket channel when a member picks a
// topic on the panel. The panel select is reset by the ephemeral reply, so
// the same member can open another ticket later.
func (h *Handlers) handleTicketOpenSelect(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	if len(ic.Values) == 0 {
		return rsp.Reply(ephemeralText(genericSelectionMsg))
	}
	topic := ic.Values[0]

	cfg, err := repo.GetGuildConfig(ctx, h.DB, ic.GuildID)
	if err != nil {
		return fmt.Errorf("loading guild config: %w", err)
	}
	if cfg.TicketCategory == "" {
		return rsp.Reply(ephemeralText("The ticket system is not configured. Ask an admin to run `/ticket setup`."))
	}

	open, err := repo.CountOpenTickets(ctx, h.DB, ic.GuildID, ic.UserID)
	if err != nil {
		return fmt.Errorf("counting open tickets: %w", err)
	}
	if open >= maxOpenTicketsPerUser {
		return rsp.Reply(ephemeralText(fmt.Sprintf("You already have %d open tickets. Close one before opening another.", open)))
	}

	// Channel creation can exceed the 3s ack window, so defer first.
	if err := rsp.Defer(true); err != nil {
		return err
	}

	number, err := repo.NextTicketNumber(ctx, h.DB, ic.GuildID)
	if err != nil {
		return fmt.Errorf("allocating ticket number: %w", err)
	}

	botID := h.Discord.State.User.ID
	ch, err := h.Discord.GuildChannelCreateComplex(ic.GuildID, discordgo.GuildChannelCreateData{
		Name:     fmt.Sprintf("ticket-%04d", number),
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: cfg.TicketCategory,
		Topic:    fmt.Sprintf("%s | opened by <@%s>", topic, ic.UserID),
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				ID:   ic.GuildID, // @everyone shares the guild id
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			{
				ID:    ic.UserID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory,
			},
			{
				ID:    botID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionManageChannels,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating ticket channel: %w", err)
	}

	if _, err := repo.CreateTicket(ctx, h.DB, ch.ID, ic.GuildID, ic.UserID, topic, number); err != nil {
		// The channel exists but the row does not; remove the channel so the
		// member is not left with an untracked ticket.
		if _, derr := h.Discord.ChannelDelete(ch.ID); derr != nil {
			h.Log.Error().Err(derr).Str("channel_id", ch.ID).Msg("orphaned ticket channel cleanup failed")
		}
		return fmt.Errorf("recording ticket: %w", err)
	}

	if _, err := h.Discord.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", ic.UserID),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("Ticket #%04d — %s", number, topic),
			Description: "Describe your issue here. A staff member will be with you shortly.",
			Color:       0x57F287,
		}},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{CustomID: "ticket_claim", Label: "Claim", Style: discordgo.PrimaryButton, Emoji: &discordgo.ComponentEmoji{Name: "🙋"}},
			discordgo.Button{CustomID: "ticket_close_btn", Label: "Close", Style: discordgo.DangerButton, Emoji: &discordgo.ComponentEmoji{Name: "🔒"}},
		}}},
	}); err != nil {
		h.Log.Error().Err(err).Str("channel_id", ch.ID).Msg("ticket intro message failed")
	}

	return rsp.FollowUp(ephemeralText(fmt.Sprintf("Your ticket is ready: <#%s>", ch.ID)))
}

// handleTicketClaim marks the ticket claimed by the clicking staff member.
// The guarded update makes concurrent claims race-safe: exactly one click
// wins and the rest get a notice.
func (h *Handlers) handleTicketClaim(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	if _, err := repo.GetTicket(ctx, h.DB, ic.ChannelID); errors.Is(err, repo.ErrNotFound) {
		return rsp.Reply(ephemeralText("This channel is not a tracked ticket."))
	} else if err != nil {
		return fmt.Errorf("loading ticket: %w", err)
	}
	err := repo.ClaimTicket(ctx, h.DB, ic.ChannelID, ic.UserID)
	switch {
	case errors.Is(err, repo.ErrInvalidTransition):
		return rsp.Reply(ephemeralText("This ticket is already claimed or closed."))
	case err != nil:
		return fmt.Errorf("claiming ticket: %w", err)
	}
	return rsp.Reply(dispatch.Reply{
		Content: fmt.Sprintf("🙋 Ticket claimed by <@%s>.", ic.UserID),
	})
}

// handleTicketCloseButton asks for confirmation before closing, replacing
// the need for a typed command in the ticket channel.
func (h *Handlers) handleTicketCloseButton(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	return rsp.Reply(dispatch.Reply{
		Content: "Close this ticket? The channel will be deleted.",
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{CustomID: "ticket_close_confirm", Label: "Close ticket", Style: discordgo.DangerButton},
			discordgo.Button{CustomID: "ticket_close_cancel", Label: "Keep open", Style: discordgo.SecondaryButton},
		}}},
		Ephemeral: true,
	})
}

func (h *Handlers) handleTicketCloseCancel(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	return rsp.Update(finalText("Ticket stays open."))
}

// handleTicketCloseConfirm closes the ticket: the row is marked closed, a
// summary embed goes to the log channel if one is configured, and the
// backing channel is deleted.
func (h *Handlers) handleTicketCloseConfirm(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	ticket, err := repo.GetTicket(ctx, h.DB, ic.ChannelID)
	if errors.Is(err, repo.ErrNotFound) {
		return rsp.Update(finalText("This channel is not a tracked ticket."))
	}
	if err != nil {
		return fmt.Errorf("loading ticket: %w", err)
	}

	if err := repo.CloseTicket(ctx, h.DB, ic.ChannelID); err != nil {
		if errors.Is(err, repo.ErrInvalidTransition) {
			return rsp.Update(finalText("This ticket is already closed."))
		}
		return fmt.Errorf("closing ticket: %w", err)
	}

	if err := rsp.Update(finalText("Closing the ticket...")); err != nil {
		return err
	}

	h.sendTicketCloseLog(ctx, ticket, ic.UserID)

	if _, err := h.Discord.ChannelDelete(ic.ChannelID); err != nil {
		h.Log.Error().Err(err).Str("channel_id", ic.ChannelID).Msg("deleting ticket channel failed")
	}
	return nil
}

// sendTicketCloseLog posts the closing summary to the guild's ticket log
// channel, if configured. Failures are logged, never surfaced to the user.
func (h *Handlers) sendTicketCloseLog(ctx context.Context, ticket *domain.Ticket, closedBy string) {
	cfg, err := repo.GetGuildConfig(ctx, h.DB, ticket.GuildID)
	if err != nil || cfg.TicketLogChannel == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Ticket #%04d closed", ticket.Number),
		Color: 0xED4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Topic", Value: ticket.CategoryID, Inline: true},
			{Name: "Opened by", Value: fmt.Sprintf("<@%s>", ticket.UserID), Inline: true},
			{Name: "Closed by", Value: fmt.Sprintf("<@%s>", closedBy), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if ticket.ClaimedBy != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Handled by", Value: fmt.Sprintf("<@%s>", ticket.ClaimedBy), Inline: true,
		})
	}
	if _, err := h.Discord.ChannelMessageSendEmbed(cfg.TicketLogChannel, embed); err != nil {
		h.Log.Warn().Err(err).Str("guild_id", ticket.GuildID).Msg("ticket close log failed")
	}
}
