package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/repo"
)

func (h *Handlers) handleBirthdayCommand(ctx context.Context, ic *dispatch.Interaction, rsp dispatch.Responder) error {
	sub := subcommand(ic)
	if sub == nil {
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
	switch sub.Name {
	case "set":
		opts := optionMap(sub.Options)
		month := int(opts["month"].IntValue())
		day := int(opts["day"].IntValue())
		if !validBirthday(month, day) {
			return rsp.Reply(ephemeralText("That is not a valid date. Month must be 1-12 and day must fit the month."))
		}
		if err := repo.UpsertBirthday(ctx, h.DB, ic.GuildID, ic.UserID, month, day); err != nil {
			return fmt.Errorf("saving birthday: %w", err)
		}
		return rsp.Reply(ephemeralText(fmt.Sprintf("Birthday saved: %s %d. 🎂", time.Month(month), day)))

	case "remove":
		err := repo.DeleteBirthday(ctx, h.DB, ic.GuildID, ic.UserID)
		if errors.Is(err, repo.ErrNotFound) {
			return rsp.Reply(ephemeralText("You have no birthday registered here."))
		}
		if err != nil {
			return fmt.Errorf("removing birthday: %w", err)
		}
		return rsp.Reply(ephemeralText("Your birthday has been removed."))

	default:
		return rsp.Reply(ephemeralText("Unknown subcommand."))
	}
}

// validBirthday checks month and day ranges, including per-month day counts.
// February 29 is accepted; the announcer handles leap years.
func validBirthday(month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	days := [...]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	return day <= days[month-1]
}
