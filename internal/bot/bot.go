// Package bot owns the Discord gateway session: connecting, syncing the
// slash command set, and feeding interaction events into the dispatcher.
package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"guildkeeper/internal/config"
	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/handlers"
	"guildkeeper/internal/wizard"
)

// Bot is the assembled gateway service.
type Bot struct {
	Session    *discordgo.Session
	Dispatcher *dispatch.Dispatcher
	Handlers   *handlers.Handlers
	Sessions   wizard.Store

	log zerolog.Logger
}

// New wires the session, dispatcher, wizard, and handlers together. It does
// not open the gateway connection; call Start for that.
func New(cfg config.Config, db *gorm.DB, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages

	store := wizard.NewMemoryStore()
	machine := wizard.NewMachine(store, &handlers.TicketConfigPersister{DB: db})

	h := handlers.New(db, session, machine, cfg, log)

	d := dispatch.NewDispatcher(
		dispatch.NewGuard(cfg.GuardTTL),
		dispatch.NewRouter(),
		log,
	)
	h.Register(d.Router())

	b := &Bot{
		Session:    session,
		Dispatcher: d,
		Handlers:   h,
		Sessions:   store,
		log:        log,
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(h.OnGuildMemberAdd)

	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("opening gateway connection: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.Session.Close()
}

// Connected reports whether the websocket session is live.
func (b *Bot) Connected() bool {
	return b.Session.DataReady
}

// onReady syncs the slash command set. The bulk overwrite replaces all
// previously registered commands, so removed ones disappear without manual
// cleanup.
func (b *Bot) onReady(s *discordgo.Session, ev *discordgo.Ready) {
	b.log.Info().
		Str("username", ev.User.Username).
		Int("guilds", len(ev.Guilds)).
		Msg("gateway session ready")

	if _, err := s.ApplicationCommandBulkOverwrite(ev.User.ID, "", handlers.Commands()); err != nil {
		b.log.Error().Err(err).Msg("slash command sync failed")
		return
	}
	b.log.Info().Int("commands", len(handlers.Commands())).Msg("slash commands synced")
}

// onInteractionCreate adapts a raw gateway event for the dispatcher. Pings
// and autocomplete produce a nil adapter and are ignored.
func (b *Bot) onInteractionCreate(s *discordgo.Session, ev *discordgo.InteractionCreate) {
	ic := dispatch.FromInteractionCreate(ev)
	if ic == nil {
		return
	}
	rsp := dispatch.NewResponder(s, ev.Interaction, b.log)
	b.Dispatcher.Dispatch(context.Background(), ic, rsp)
}
