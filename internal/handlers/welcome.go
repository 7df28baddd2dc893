package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/repo"
)

const defaultWelcomeMessage = "Welcome to {server}, {user}!"

func (h *Handlers) handleWelcomeCommand(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sub := subcommand(ic)
	if sub == nil {
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
	switch sub.Name {
	case "set":
		opts := optionMap(sub.Options)
		channel := opts["channel"].ChannelValue(nil)
		message := strings.TrimSpace(opts["message"].StringValue())
		if message == "" {
			message = defaultWelcomeMessage
		}
		err := repo.UpdateGuildConfig(ctx, h.DB, ic.GuildID, map[string]any{
			"welcome_enabled": true,
			"welcome_channel": channel.ID,
			"welcome_message": message,
		})
		if err != nil {
			return fmt.Errorf("saving welcome config: %w", err)
		}
		return rsp.Reply(ephemeralText(fmt.Sprintf("Welcome messages enabled in <#%s>.", channel.ID)))

	case "disable":
		err := repo.UpdateGuildConfig(ctx, h.DB, ic.GuildID, map[string]any{
			"welcome_enabled": false,
		})
		if err != nil {
			return fmt.Errorf("saving welcome config: %w", err)
		}
		return rsp.Reply(ephemeralText("Welcome messages disabled."))

	case "test":
		cfg, err := repo.GetGuildConfig(ctx, h.DB, ic.GuildID)
		if err != nil {
			return fmt.Errorf("loading guild config: %w", err)
		}
		if !cfg.WelcomeEnabled || cfg.WelcomeChannel == "" {
			return rsp.Reply(ephemeralText("Welcome messages are not enabled. Use `/welcome set` first."))
		}
		guildName := ic.GuildID
		if g, err := h.Discord.State.Guild(ic.GuildID); err == nil {
			guildName = g.Name
		}
		preview := RenderWelcome(cfg.WelcomeMessage, ic.UserID, guildName)
		return rsp.Reply(ephemeralText("Preview: " + preview))

	default:
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
}

// RenderWelcome substitutes the {user} and {server} placeholders. {user}
// becomes a mention so the new member gets pinged.
func RenderWelcome(template, userID, serverName string) string {
	out := strings.ReplaceAll(template, "{user}", fmt.Sprintf("<@%s>", userID))
	return strings.ReplaceAll(out, "{server}", serverName)
}

// OnGuildMemberAdd greets a newly joined member when the guild has welcome
// messages enabled. Registered directly on the gateway session; member joins
// are not interactions and never pass through the dispatcher.
func (h *Handlers) OnGuildMemberAdd(s *discordgo.Session, ev *discordgo.GuildMemberAdd) {
	ctx := context.Background()
	cfg, err := repo.GetGuildConfig(ctx, h.DB, ev.GuildID)
	if err != nil {
		h.Log.Error().Err(err).Str("guild_id", ev.GuildID).Msg("loading guild config for welcome failed")
		return
	}
	if !cfg.WelcomeEnabled || cfg.WelcomeChannel == "" {
		return
	}
	guildName := ev.GuildID
	if g, err := s.State.Guild(ev.GuildID); err == nil {
		guildName = g.Name
	}
	msg := cfg.WelcomeMessage
	if msg == "" {
		msg = defaultWelcomeMessage
	}
	if _, err := s.ChannelMessageSend(cfg.WelcomeChannel, RenderWelcome(msg, ev.User.ID, guildName)); err != nil {
		h.Log.Warn().Err(err).Str("guild_id", ev.GuildID).Msg("welcome message failed")
	}
}
