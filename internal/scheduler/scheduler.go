// Package scheduler runs the bot's periodic background work: expiring the
// interaction guard, reaping idle wizard sessions, finishing due giveaways,
// and announcing birthdays. Every loop is a plain ticker bound to one
// context so shutdown stops all of them together.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"guildkeeper/internal/config"
	"guildkeeper/internal/domain"
	"guildkeeper/internal/repo"
	"guildkeeper/internal/wizard"
)

// GuardSweeper expires stale in-flight interaction records.
type GuardSweeper interface {
	SweepGuard()
}

// Announcer sends a plain message to a channel. Satisfied by
// discordgo.Session.ChannelMessageSend via AnnouncerFunc.
type Announcer interface {
	Announce(channelID, content string) error
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(channelID, content string) error

// Announce implements Announcer.
func (f AnnouncerFunc) Announce(channelID, content string) error { return f(channelID, content) }

// Scheduler owns the background loops.
type Scheduler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Log      zerolog.Logger
	Guard    GuardSweeper
	Sessions wizard.Store
	Announce Announcer

	// FinishGiveaway ends one due giveaway; wired to the handler layer's
	// finisher so the sweep and `/giveaway end` share one code path.
	FinishGiveaway func(ctx context.Context, g domain.Giveaway) error

	// limiter paces outbound announcements across all loops.
	limiter *rate.Limiter

	// clock is a test seam; defaults to time.Now.
	clock func() time.Time
}

// New builds a Scheduler. The send limiter is shared across every loop so a
// burst of due giveaways and birthdays cannot flood the gateway REST API.
func New(db *gorm.DB, cfg config.Config, log zerolog.Logger, guard GuardSweeper, sessions wizard.Store, announce Announcer, finish func(context.Context, domain.Giveaway) error) *Scheduler {
	return &Scheduler{
		DB:             db,
		Cfg:            cfg,
		Log:            log,
		Guard:          guard,
		Sessions:       sessions,
		Announce:       announce,
		FinishGiveaway: finish,
		limiter:        rate.NewLimiter(rate.Limit(cfg.SendRPS), cfg.SendBurst),
		clock:          time.Now,
	}
}

// Run starts every loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	loops := []struct {
		name  string
		every time.Duration
		fn    func(context.Context) error
	}{
		{"guard", s.Cfg.GuardSweepEvery, s.sweepGuard},
		{"wizard", s.Cfg.WizardSweepEvery, s.sweepWizard},
		{"giveaways", s.Cfg.GiveawaySweepEvery, s.sweepGiveaways},
		{"birthdays", s.Cfg.BirthdaySweepEvery, s.sweepBirthdays},
	}
	for _, l := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, l.name, l.every, l.fn)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, fn func(context.Context) error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := fn(ctx); err != nil {
				sweepErrors.WithLabelValues(name).Inc()
				s.Log.Error().Err(err).Str("sweep", name).Msg("background sweep failed")
			}
		}
	}
}

func (s *Scheduler) sweepGuard(context.Context) error {
	s.Guard.SweepGuard()
	return nil
}

func (s *Scheduler) sweepWizard(context.Context) error {
	n := s.Sessions.Sweep(s.clock(), s.Cfg.WizardTTL)
	if n > 0 {
		wizardSessionsExpired.Add(float64(n))
		s.Log.Info().Int("expired", n).Msg("idle wizard sessions reaped")
	}
	return nil
}

func (s *Scheduler) sweepGiveaways(ctx context.Context) error {
	due, err := repo.ListDueGiveaways(ctx, s.DB, s.clock())
	if err != nil {
		return fmt.Errorf("listing due giveaways: %w", err)
	}
	for _, g := range due {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := s.FinishGiveaway(ctx, g); err != nil {
			s.Log.Error().Err(err).Str("giveaway_id", g.ID).Msg("finishing giveaway failed")
			continue
		}
		giveawaysEnded.Inc()
	}
	return nil
}

// sweepBirthdays announces today's birthdays into each guild's welcome
// channel. AnnouncedOn gates repeats, so running the sweep every few
// minutes sends at most one message per member per day.
func (s *Scheduler) sweepBirthdays(ctx context.Context) error {
	now := s.clock()
	today := now.Format("2006-01-02")

	due, err := repo.ListDueBirthdays(ctx, s.DB, int(now.Month()), now.Day(), today)
	if err != nil {
		return fmt.Errorf("listing due birthdays: %w", err)
	}
	// February 29 birthdays are celebrated on March 1 in common years.
	if now.Month() == time.March && now.Day() == 1 && !isLeapYear(now.Year()) {
		extra, err := repo.ListDueBirthdays(ctx, s.DB, 2, 29, today)
		if err != nil {
			return fmt.Errorf("listing leap-day birthdays: %w", err)
		}
		due = append(due, extra...)
	}

	for _, b := range due {
		cfg, err := repo.GetGuildConfig(ctx, s.DB, b.GuildID)
		if err != nil {
			s.Log.Error().Err(err).Str("guild_id", b.GuildID).Msg("loading guild config for birthday failed")
			continue
		}
		if cfg.WelcomeChannel == "" {
			// No channel to announce in; mark anyway so the row is not
			// retried all day.
			if err := repo.MarkBirthdayAnnounced(ctx, s.DB, b.ID, today); err != nil {
				s.Log.Error().Err(err).Uint("birthday_id", b.ID).Msg("marking birthday failed")
			}
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		msg := fmt.Sprintf("🎂 Happy birthday, <@%s>!", b.UserID)
		if err := s.Announce.Announce(cfg.WelcomeChannel, msg); err != nil {
			s.Log.Warn().Err(err).Str("guild_id", b.GuildID).Msg("birthday announcement failed")
			continue
		}
		if err := repo.MarkBirthdayAnnounced(ctx, s.DB, b.ID, today); err != nil {
			s.Log.Error().Err(err).Uint("birthday_id", b.ID).Msg("marking birthday failed")
			continue
		}
		birthdaysAnnounced.Inc()
	}
	return nil
}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
