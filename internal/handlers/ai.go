package handlers

import (
	"context"
	"fmt"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/repo"
)

// The AI commands manage configuration only; wiring a model provider into
// the message loop is out of scope for this service.
func (h *Handlers) handleAICommand(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sub := subcommand(ic)
	if sub == nil {
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
	switch sub.Name {
	case "enable":
		opts := optionMap(sub.Options)
		channel := opts["channel"].ChannelValue(nil)
		err := repo.UpdateGuildConfig(ctx, h.DB, ic.GuildID, map[string]any{
			"ai_enabled": true,
			"ai_channel": channel.ID,
		})
		if err != nil {
			return fmt.Errorf("saving ai config: %w", err)
		}
		return rsp.Reply(ephemeralText(fmt.Sprintf("AI responder enabled in <#%s>.", channel.ID)))

	case "disable":
		err := repo.UpdateGuildConfig(ctx, h.DB, ic.GuildID, map[string]any{
			"ai_enabled": false,
		})
		if err != nil {
			return fmt.Errorf("saving ai config: %w", err)
		}
		return rsp.Reply(ephemeralText("AI responder disabled."))

	case "prompt":
		opts := optionMap(sub.Options)
		prompt := opts["text"].StringValue()
		err := repo.UpdateGuildConfig(ctx, h.DB, ic.GuildID, map[string]any{
			"ai_prompt": prompt,
		})
		if err != nil {
			return fmt.Errorf("saving ai config: %w", err)
		}
		return rsp.Reply(ephemeralText("AI prompt updated."))

	case "status":
		cfg, err := repo.GetGuildConfig(ctx, h.DB, ic.GuildID)
		if err != nil {
			return fmt.Errorf("loading guild config: %w", err)
		}
		if !cfg.AIEnabled {
			return rsp.Reply(ephemeralText("AI responder is disabled."))
		}
		msg := fmt.Sprintf("AI responder is enabled in <#%s>.", cfg.AIChannel)
		if cfg.AIPrompt != "" {
			msg += fmt.Sprintf(" Prompt: %q", cfg.AIPrompt)
		}
		return rsp.Reply(ephemeralText(msg))

	default:
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
}
