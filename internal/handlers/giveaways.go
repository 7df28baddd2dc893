package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/domain"
	"guildkeeper/internal/repo"
)

const (
	minGiveawayDuration = time.Minute
	maxGiveawayDuration = 14 * 24 * time.Hour
)

func (h *Handlers) handleGiveawayCommand(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sub := subcommand(ic)
	if sub == nil {
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
	switch sub.Name {
	case "start":
		return h.startGiveaway(ctx, ic, rsp)
	case "end":
		return h.endGiveawayEarly(ctx, ic, rsp)
	case "reroll":
		return h.rerollGiveaway(ctx, ic, rsp)
	default:
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
}

func (h *Handlers) startGiveaway(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	opts := optionMap(subcommand(ic).Options)

	dur, err := time.ParseDuration(opts["duration"].StringValue())
	if err != nil || dur < minGiveawayDuration || dur > maxGiveawayDuration {
		return rsp.Reply(ephemeralText("Duration must be between 1m and 336h, e.g. `30m`, `2h`, `1h30m`."))
	}
	prize := strings.TrimSpace(opts["prize"].StringValue())
	if prize == "" {
		return rsp.Reply(ephemeralText("The prize cannot be empty."))
	}
	winners := 1
	if o, ok := opts["winners"]; ok {
		winners = int(o.IntValue())
	}

	endsAt := time.Now().Add(dur)
	msg, err := h.Discord.ChannelMessageSendComplex(ic.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{giveawayEmbed(prize, winners, ic.UserID, endsAt, nil)},
		Components: []discordgo.MessageComponent{giveawayEnterRow(false)},
	})
	if err != nil {
		return fmt.Errorf("posting giveaway message: %w", err)
	}

	if _, err := repo.CreateGiveaway(ctx, h.DB, ic.GuildID, ic.ChannelID, msg.ID, prize, ic.UserID, winners, endsAt); err != nil {
		if derr := h.Discord.ChannelMessageDelete(ic.ChannelID, msg.ID); derr != nil {
			h.Log.Error().Err(derr).Str("message_id", msg.ID).Msg("orphaned giveaway message cleanup failed")
		}
		return fmt.Errorf("recording giveaway: %w", err)
	}
	return rsp.Reply(ephemeralText(fmt.Sprintf("Giveaway started, ends <t:%d:R>.", endsAt.Unix())))
}

func (h *Handlers) endGiveawayEarly(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	g, err := h.lookupGiveaway(ctx, ic, rsp)
	if g == nil {
		return err
	}
	if g.Ended {
		return rsp.Reply(ephemeralText("That giveaway has already ended. Use `/giveaway reroll` to redraw."))
	}
	if err := h.FinishGiveaway(ctx, *g); err != nil {
		return fmt.Errorf("ending giveaway: %w", err)
	}
	return rsp.Reply(ephemeralText("Giveaway ended and winners drawn."))
}

func (h *Handlers) rerollGiveaway(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	g, err := h.lookupGiveaway(ctx, ic, rsp)
	if g == nil {
		return err
	}
	if !g.Ended {
		return rsp.Reply(ephemeralText("That giveaway is still running. End it first."))
	}
	entrants, err := repo.ListGiveawayEntrants(ctx, h.DB, g.ID)
	if err != nil {
		return fmt.Errorf("listing entrants: %w", err)
	}
	winners := drawWinners(entrants, g.WinnerCount)
	h.announceWinners(g, winners, true)
	return rsp.Reply(ephemeralText("Winners redrawn."))
}

// lookupGiveaway resolves the message_id option. On a miss it answers the
// user itself and returns a nil giveaway with the reply's error.
func (h *Handlers) lookupGiveaway(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) (*domain.Giveaway, error) {
	opts := optionMap(subcommand(ic).Options)
	messageID := strings.TrimSpace(opts["message_id"].StringValue())
	g, err := repo.GetGiveawayByMessage(ctx, h.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, rsp.Reply(ephemeralText("No giveaway found for that message id."))
	}
	if err != nil {
		return nil, fmt.Errorf("loading giveaway: %w", err)
	}
	return g, nil
}

// handleGiveawayEnter records a member's entry. The unique index makes the
// button idempotent; a second click just tells them they are already in.
func (h *Handlers) handleGiveawayEnter(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	g, err := repo.GetGiveawayByMessage(ctx, h.DB, ic.MessageID)
	if errors.Is(err, repo.ErrNotFound) {
		return rsp.Reply(ephemeralText("This giveaway no longer exists."))
	}
	if err != nil {
		return fmt.Errorf("loading giveaway: %w", err)
	}
	if g.Ended || time.Now().After(g.EndsAt) {
		return rsp.Reply(ephemeralText("This giveaway has already ended."))
	}

	err = repo.AddGiveawayEntry(ctx, h.DB, g.ID, ic.UserID)
	if errors.Is(err, repo.ErrDuplicateEntry) {
		return rsp.Reply(ephemeralText("You are already entered. 🎉"))
	}
	if err != nil {
		return fmt.Errorf("recording entry: %w", err)
	}
	return rsp.Reply(ephemeralText(fmt.Sprintf("You are in! The draw is <t:%d:R>.", g.EndsAt.Unix())))
}

// FinishGiveaway ends a giveaway exactly once: the row is marked ended,
// winners are drawn from the entrants, the original message is updated, and
// the winners are announced. The guarded mark means concurrent finishers
// (the expiry sweep racing `/giveaway end`) collapse to a single draw.
func (h *Handlers) FinishGiveaway(ctx context.Context, g domain.Giveaway) error {
	err := repo.MarkGiveawayEnded(ctx, h.DB, g.ID)
	if errors.Is(err, repo.ErrNotFound) {
		// Someone else finished it first.
		return nil
	}
	if err != nil {
		return fmt.Errorf("marking giveaway ended: %w", err)
	}

	entrants, err := repo.ListGiveawayEntrants(ctx, h.DB, g.ID)
	if err != nil {
		return fmt.Errorf("listing entrants: %w", err)
	}
	winners := drawWinners(entrants, g.WinnerCount)

	embed := giveawayEmbed(g.Prize, g.WinnerCount, g.CreatedBy, g.EndsAt, winners)
	if _, err := h.Discord.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    g.ChannelID,
		ID:         g.MessageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{giveawayEnterRow(true)},
	}); err != nil {
		h.Log.Warn().Err(err).Str("giveaway_id", g.ID).Msg("editing ended giveaway message failed")
	}

	h.announceWinners(&g, winners, false)
	return nil
}

func (h *Handlers) announceWinners(g *domain.Giveaway, winners []string, reroll bool) {
	var content string
	switch {
	case len(winners) == 0:
		content = fmt.Sprintf("No valid entries for **%s**; no winner could be drawn.", g.Prize)
	case reroll:
		content = fmt.Sprintf("🎉 Reroll! New winner(s) for **%s**: %s", g.Prize, mentionList(winners))
	default:
		content = fmt.Sprintf("🎉 Congratulations %s! You won **%s**.", mentionList(winners), g.Prize)
	}
	if _, err := h.Discord.ChannelMessageSendReply(g.ChannelID, content, &discordgo.MessageReference{
		MessageID: g.MessageID,
		ChannelID: g.ChannelID,
		GuildID:   g.GuildID,
	}); err != nil {
		h.Log.Warn().Err(err).Str("giveaway_id", g.ID).Msg("winner announcement failed")
	}
}

// drawWinners picks up to n distinct entrants uniformly at random.
func drawWinners(entrants []string, n int) []string {
	if n <= 0 || len(entrants) == 0 {
		return nil
	}
	if n > len(entrants) {
		n = len(entrants)
	}
	perm := rand.Perm(len(entrants))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, entrants[i])
	}
	return out
}

func mentionList(ids []string) string {
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@" + id + ">"
	}
	return strings.Join(mentions, ", ")
}

func giveawayEmbed(prize string, winners int, host string, endsAt time.Time, drawn []string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🎉 Giveaway: " + prize,
		Color: 0xFEE75C,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Winners", Value: fmt.Sprintf("%d", winners), Inline: true},
			{Name: "Hosted by", Value: fmt.Sprintf("<@%s>", host), Inline: true},
		},
	}
	if drawn == nil {
		embed.Description = fmt.Sprintf("Hit the button to enter! Ends <t:%d:R>.", endsAt.Unix())
	} else {
		embed.Color = 0x57F287
		if len(drawn) == 0 {
			embed.Description = "Ended. No valid entries."
		} else {
			embed.Description = "Ended. Winner(s): " + mentionList(drawn)
		}
	}
	return embed
}

func giveawayEnterRow(ended bool) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			CustomID: "giveaway_enter",
			Label:    "Enter",
			Style:    discordgo.PrimaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: "🎉"},
			Disabled: ended,
		},
	}}
}
