// Package domain defines the persistence models for guild configuration,
// tickets, birthdays, giveaways, and economy accounts. These types are mapped
// with GORM and form the core data layer of the bot.
package domain

import (
	"time"
)

// Ticket status values. Transitions are monotonic:
// open -> (claimed)? -> closed. Closed tickets are never reopened in place;
// a new ticket is created instead.
const (
	TicketStatusOpen    = "open"
	TicketStatusClaimed = "claimed"
	TicketStatusClosed  = "closed"
)

// GuildConfig holds all per-guild feature settings in one row.
//
// The row is lazily created on first configuration touch ("first or create")
// and never deleted; each column family (welcome_*, ai_*, ticket_*,
// economy_*) is independently nullable with a documented default. Missing
// columns are migrated in at startup by AutoMigrate.
type GuildConfig struct {
	GuildID string `gorm:"type:varchar(32);primaryKey"`

	// Welcome messages. Disabled until a channel is set.
	WelcomeEnabled bool   `gorm:"not null;default:false"`
	WelcomeChannel string `gorm:"type:varchar(32);not null;default:''"`
	// WelcomeMessage supports {user} and {server} placeholders.
	WelcomeMessage string `gorm:"type:text;not null;default:''"`

	// AI auto-responder. Configuration only; no provider integration here.
	AIEnabled bool   `gorm:"not null;default:false"`
	AIChannel string `gorm:"type:varchar(32);not null;default:''"`
	AIPrompt  string `gorm:"type:text;not null;default:''"`

	// Ticket system. Populated by the setup wizard in a single upsert.
	TicketPanelChannel string `gorm:"type:varchar(32);not null;default:''"`
	TicketCategory     string `gorm:"type:varchar(32);not null;default:''"`
	// TicketTypes is a comma-separated list of selectable ticket topics.
	TicketTypes      string `gorm:"type:text;not null;default:''"`
	TicketLogChannel string `gorm:"type:varchar(32);not null;default:''"`
	TicketCounter    int    `gorm:"not null;default:0"`

	// Economy.
	EconomyEnabled     bool  `gorm:"not null;default:true"`
	EconomyDailyAmount int64 `gorm:"not null;default:100"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for GuildConfig.
func (GuildConfig) TableName() string { return "guild_configs" }

// Ticket represents one support ticket backed by a private channel.
//
// Fields:
//   - ChannelID: primary key; the backing Discord channel.
//   - GuildID / UserID: owning guild and opener.
//   - CategoryID: ticket topic chosen from the panel.
//   - Number: per-guild running ticket number.
//   - Status: open, claimed, or closed (monotonic, see constants above).
//   - ClaimedBy: staff member who claimed the ticket, if any.
//   - ClosedAt: set when the ticket reaches its terminal state. The row is
//     retained for history after the channel is deleted.
type Ticket struct {
	ChannelID  string `gorm:"type:varchar(32);primaryKey"`
	GuildID    string `gorm:"type:varchar(32);not null;index:idx_guild_tickets"`
	UserID     string `gorm:"type:varchar(32);not null;index"`
	CategoryID string `gorm:"type:varchar(64);not null;default:''"`
	Number     int    `gorm:"not null"`
	Status     string `gorm:"type:varchar(16);not null;default:'open';check:status IN ('open','claimed','closed')"`
	ClaimedBy  string `gorm:"type:varchar(32);not null;default:''"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   *time.Time
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }

// Birthday stores a member's birthday (month/day only). One row per member
// per guild, replaced on update.
type Birthday struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	GuildID string `gorm:"type:varchar(32);not null;uniqueIndex:ux_birthday_guild_user,priority:1"`
	UserID  string `gorm:"type:varchar(32);not null;uniqueIndex:ux_birthday_guild_user,priority:2"`
	Month   int    `gorm:"not null;check:month BETWEEN 1 AND 12"`
	Day     int    `gorm:"not null;check:day BETWEEN 1 AND 31"`
	// AnnouncedOn records the last date (YYYY-MM-DD) an announcement was
	// sent, so the sweep never double-announces within a day.
	AnnouncedOn string `gorm:"type:varchar(10);not null;default:''"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for Birthday.
func (Birthday) TableName() string { return "birthdays" }

// Giveaway represents a running or finished giveaway. Entries are collected
// through a button on the giveaway message; the expiry sweep draws winners
// once EndsAt has passed and marks the row ended.
type Giveaway struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	GuildID     string `gorm:"type:varchar(32);not null;index"`
	ChannelID   string `gorm:"type:varchar(32);not null"`
	MessageID   string `gorm:"type:varchar(32);not null;index"`
	Prize       string `gorm:"type:varchar(255);not null"`
	WinnerCount int    `gorm:"not null;default:1"`
	EndsAt      time.Time `gorm:"not null;index"`
	Ended       bool      `gorm:"not null;default:false;index"`
	CreatedBy   string    `gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for Giveaway.
func (Giveaway) TableName() string { return "giveaways" }

// GiveawayEntry records one member's entry into a giveaway. The unique index
// makes the enter button idempotent per user.
type GiveawayEntry struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	GiveawayID string `gorm:"type:char(36);not null;uniqueIndex:ux_giveaway_user,priority:1"`
	UserID     string `gorm:"type:varchar(32);not null;uniqueIndex:ux_giveaway_user,priority:2"`
	CreatedAt  time.Time

	// Giveaway is the parent row. Entries are cascade-deleted with it.
	Giveaway Giveaway `gorm:"foreignKey:GiveawayID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for GiveawayEntry.
func (GiveawayEntry) TableName() string { return "giveaway_entries" }

// EconomyAccount keeps a member's balance. Amounts are plain integers.
type EconomyAccount struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	GuildID   string `gorm:"type:varchar(32);not null;uniqueIndex:ux_economy_guild_user,priority:1"`
	UserID    string `gorm:"type:varchar(32);not null;uniqueIndex:ux_economy_guild_user,priority:2"`
	Balance   int64  `gorm:"not null;default:0"`
	LastDaily *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for EconomyAccount.
func (EconomyAccount) TableName() string { return "economy_accounts" }
