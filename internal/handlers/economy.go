package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/repo"
)

const (
	dailyCooldown = 24 * time.Hour

	// Rob tuning. A successful attempt takes a random cut of the target's
	// balance up to robMaxCut; a failed one fines the robber.
	robSuccessChance = 0.4
	robMaxCut        = 0.2
	robFailFine      = 0.1
	robMinTarget     = 50
)

func (h *Handlers) handleEconomyCommand(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sub := subcommand(ic)
	if sub == nil {
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}

	cfg, err := repo.GetGuildConfig(ctx, h.DB, ic.GuildID)
	if err != nil {
		return fmt.Errorf("loading guild config: %w", err)
	}
	if !cfg.EconomyEnabled {
		return rsp.Reply(ephemeralText("The economy is disabled on this server."))
	}

	switch sub.Name {
	case "balance":
		target := ic.UserID
		opts := optionMap(sub.Options)
		if o, ok := opts["user"]; ok {
			target = o.UserValue(nil).ID
		}
		acct, err := repo.GetAccount(ctx, h.DB, ic.GuildID, target)
		if err != nil {
			return fmt.Errorf("loading account: %w", err)
		}
		return rsp.Reply(ephemeralText(fmt.Sprintf("<@%s> has **%d** coins.", target, acct.Balance)))

	case "daily":
		balance, wait, err := repo.ClaimDaily(ctx, h.DB, ic.GuildID, ic.UserID, cfg.EconomyDailyAmount, dailyCooldown)
		if errors.Is(err, repo.ErrDailyClaimed) {
			return rsp.Reply(ephemeralText(fmt.Sprintf("Already claimed. Come back in %s.", wait.Round(time.Minute))))
		}
		if err != nil {
			return fmt.Errorf("claiming daily: %w", err)
		}
		return rsp.Reply(ephemeralText(fmt.Sprintf("Daily reward claimed: +%d. Balance: **%d**.", cfg.EconomyDailyAmount, balance)))

	case "rob":
		return h.startRob(ctx, ic, rsp)

	default:
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
}

// startRob asks the robber to confirm the attempt. The buttons are live for
// a bounded window; on timeout the prompt is edited to drop them so a stale
// click cannot resolve an expired attempt.
func (h *Handlers) startRob(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	opts := optionMap(subcommand(ic).Options)
	target := opts["target"].UserValue(nil)
	if target.ID == ic.UserID {
		return rsp.Reply(ephemeralText("You cannot rob yourself."))
	}
	if target.Bot {
		return rsp.Reply(ephemeralText("Bots carry no coins."))
	}

	victim, err := repo.GetAccount(ctx, h.DB, ic.GuildID, target.ID)
	if err != nil {
		return fmt.Errorf("loading target account: %w", err)
	}
	if victim.Balance < robMinTarget {
		return rsp.Reply(ephemeralText(fmt.Sprintf("<@%s> is not worth robbing (needs at least %d coins).", target.ID, robMinTarget)))
	}

	err = rsp.Reply(dispatch.Reply{
		Content: fmt.Sprintf("Rob <@%s>? A failed attempt costs you %.0f%% of your own balance.", target.ID, robFailFine*100),
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{CustomID: "rob_confirm:" + target.ID, Label: "Do it", Style: discordgo.DangerButton},
			discordgo.Button{CustomID: "rob_cancel", Label: "Never mind", Style: discordgo.SecondaryButton},
		}}},
		Ephemeral: true,
	})
	if err != nil {
		return err
	}

	interaction := ic.Raw.Interaction
	h.confirms.arm(robKey(ic.GuildID, ic.UserID, target.ID), h.Cfg.ConfirmTimeout, func() {
		empty := []discordgo.MessageComponent{}
		content := "Robbery attempt expired."
		if _, err := h.Discord.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Components: &empty,
		}); err != nil && !dispatch.IsBenign(err) {
			h.Log.Warn().Err(err).Msg("expiring rob prompt failed")
		}
	})
	return nil
}

func robKey(guildID, robberID, targetID string) string {
	return guildID + ":" + robberID + ":" + targetID
}

func (h *Handlers) handleRobConfirm(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	targetID := customIDArg(ic.CustomID)
	if !h.confirms.resolve(robKey(ic.GuildID, ic.UserID, targetID)) {
		return rsp.Update(finalText("This attempt has expired."))
	}

	victim, err := repo.GetAccount(ctx, h.DB, ic.GuildID, targetID)
	if err != nil {
		return fmt.Errorf("loading target account: %w", err)
	}

	if rand.Float64() < robSuccessChance && victim.Balance >= robMinTarget {
		loot := 1 + rand.Int64N(int64(float64(victim.Balance)*robMaxCut))
		if err := repo.Transfer(ctx, h.DB, ic.GuildID, targetID, ic.UserID, loot); err != nil {
			return fmt.Errorf("transferring loot: %w", err)
		}
		return rsp.Update(finalText(fmt.Sprintf("💰 You made off with **%d** coins from <@%s>.", loot, targetID)))
	}

	robber, err := repo.GetAccount(ctx, h.DB, ic.GuildID, ic.UserID)
	if err != nil {
		return fmt.Errorf("loading robber account: %w", err)
	}
	fine := int64(float64(robber.Balance) * robFailFine)
	if fine > 0 {
		if _, err := repo.AddBalance(ctx, h.DB, ic.GuildID, ic.UserID, -fine); err != nil {
			return fmt.Errorf("applying fine: %w", err)
		}
	}
	return rsp.Update(finalText(fmt.Sprintf("🚨 Caught! You were fined **%d** coins.", fine)))
}

func (h *Handlers) handleRobCancel(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	// Any pending timers for this robber are best-effort cleanup; the cancel
	// button does not carry the target, so just clear the prompt.
	return rsp.Update(finalText("Probably wise."))
}
