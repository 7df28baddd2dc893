// Package handlers implements the bot's feature surface: slash commands and
// component interactions for tickets, welcome messages, the AI responder
// config, birthdays, economy, and giveaways. Handlers are stateless beyond
// the injected stores; they read and write guild configuration and, for the
// ticket setup flow, drive the wizard state machine.
package handlers

import (
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"guildkeeper/internal/config"
	"guildkeeper/internal/dispatch"
	"guildkeeper/internal/wizard"
)

// Handlers bundles the dependencies shared by every feature handler.
type Handlers struct {
	DB      *gorm.DB
	Discord *discordgo.Session
	Wizard  *wizard.Machine
	Cfg     config.Config
	Log     zerolog.Logger

	confirms confirmWaiter
}

// New builds the handler set.
func New(db *gorm.DB, discord *discordgo.Session, wz *wizard.Machine, cfg config.Config, log zerolog.Logger) *Handlers {
	return &Handlers{
		DB:      db,
		Discord: discord,
		Wizard:  wz,
		Cfg:     cfg,
		Log:     log,
		confirms: confirmWaiter{
			timers: make(map[string]*time.Timer),
		},
	}
}

// Register binds every command and component route. Overlapping prefixes
// (e.g. "ticket" vs "ticket_close_confirm") are resolved by the router's
// longest-prefix rule.
func (h *Handlers) Register(r *dispatch.Router) {
	// Slash commands.
	r.Register("ticket", h.handleTicketCommand)
	r.Register("welcome", h.handleWelcomeCommand)
	r.Register("ai", h.handleAICommand)
	r.Register("birthday", h.handleBirthdayCommand)
	r.Register("economy", h.handleEconomyCommand)
	r.Register("giveaway", h.handleGiveawayCommand)

	// Ticket setup wizard components.
	r.Register("tsetup_back", h.handleWizardBack)
	r.Register("tsetup_next", h.handleWizardNext)
	r.Register("tsetup_confirm", h.handleWizardConfirm)
	r.Register("tsetup_cancel", h.handleWizardCancel)
	r.Register("tsetup_channel", h.handleWizardChannelSelect)
	r.Register("tsetup_category", h.handleWizardCategorySelect)
	r.Register("tsetup_log", h.handleWizardLogSelect)
	r.Register("tsetup_types_open", h.handleWizardTypesOpen)
	r.Register("tsetup_types_modal", h.handleWizardTypesModal)

	// Ticket lifecycle components.
	r.Register("ticket_open", h.handleTicketOpenSelect)
	r.Register("ticket_claim", h.handleTicketClaim)
	r.Register("ticket_close_btn", h.handleTicketCloseButton)
	r.Register("ticket_close_confirm", h.handleTicketCloseConfirm)
	r.Register("ticket_close_cancel", h.handleTicketCloseCancel)

	// Economy confirmation buttons.
	r.Register("rob_confirm", h.handleRobConfirm)
	r.Register("rob_cancel", h.handleRobCancel)

	// Giveaway entry button.
	r.Register("giveaway_enter", h.handleGiveawayEnter)
}

// viewReply translates a wizard view model into a gateway reply: one embed
// plus a row of navigation buttons.
func viewReply(v wizard.View, ephemeral bool) dispatch.Reply {
	embed := &discordgo.MessageEmbed{
		Title:       v.Title,
		Description: v.Description,
		Color:       0x5865F2,
	}
	for _, f := range v.Summary {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	if v.Notice != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Notice",
			Value: v.Notice,
		})
	}

	var buttons []discordgo.MessageComponent
	for _, c := range v.Controls {
		buttons = append(buttons, discordgo.Button{
			CustomID: "tsetup_" + c.ID,
			Label:    c.Label,
			Style:    buttonStyle(c.Style),
			Disabled: c.Disabled,
		})
	}

	return dispatch.Reply{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}},
		Ephemeral:  ephemeral,
	}
}

// buttonStyle maps the renderer's style names onto gateway button styles.
func buttonStyle(style string) discordgo.ButtonStyle {
	switch style {
	case wizard.StylePrimary:
		return discordgo.PrimaryButton
	case wizard.StyleSuccess:
		return discordgo.SuccessButton
	case wizard.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}

// ephemeralText is shorthand for a plain ephemeral reply.
func ephemeralText(content string) dispatch.Reply {
	return dispatch.Reply{Content: content, Ephemeral: true}
}

// finalText is an ephemeral text payload that also strips the message's
// components. Terminal updates use it so resolved prompts are not left with
// live buttons; the update API keeps existing components unless an explicit
// empty list is sent.
func finalText(content string) dispatch.Reply {
	return dispatch.Reply{
		Content:    content,
		Components: []discordgo.MessageComponent{},
		Ephemeral:  true,
	}
}

// optionMap indexes a command's options by name.
func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return out
}

// subcommand returns the first option (the subcommand) of a command
// interaction, or nil.
func subcommand(ic *dispatch.Interaction) *discordgo.ApplicationCommandInteractionDataOption {
	opts := ic.Raw.ApplicationCommandData().Options
	if len(opts) == 0 {
		return nil
	}
	return opts[0]
}

// customIDArg splits "prefix:payload" custom ids and returns the payload.
func customIDArg(customID string) string {
	if i := strings.IndexByte(customID, ':'); i >= 0 {
		return customID[i+1:]
	}
	return ""
}

// confirmWaiter tracks armed timeout timers for bounded confirmation waits
// (e.g. the robbery confirm button). On timeout the original response is
// edited to drop its interactive components rather than leaving stale
// buttons behind.
type confirmWaiter struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// arm schedules onTimeout after d, keyed by the confirmation custom id.
// Re-arming an existing key replaces the previous timer.
func (w *confirmWaiter) arm(key string, d time.Duration, onTimeout func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[key]; ok {
		t.Stop()
	}
	w.timers[key] = time.AfterFunc(d, func() {
		w.mu.Lock()
		delete(w.timers, key)
		w.mu.Unlock()
		onTimeout()
	})
}

// resolve cancels the pending timeout for key. It reports whether the wait
// was still live (false when it already timed out or never existed).
func (w *confirmWaiter) resolve(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.timers[key]
	if !ok {
		return false
	}
	t.Stop()
	delete(w.timers, key)
	return true
}
