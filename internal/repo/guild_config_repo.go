// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the GuildConfig
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - A guild's config row is never "not found": GetGuildConfig lazily
//     creates the row with defaults on first access.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"guildkeeper/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across handlers and the scheduler.
var ErrNotFound = gorm.ErrRecordNotFound

// GetGuildConfig returns the config row for guildID, creating it with
// defaults on first access. The row is never deleted afterwards.
func GetGuildConfig(ctx context.Context, db *gorm.DB, guildID string) (*domain.GuildConfig, error) {
	var cfg domain.GuildConfig
	err := db.WithContext(ctx).
		Where(domain.GuildConfig{GuildID: guildID}).
		FirstOrCreate(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateGuildConfig applies a partial column update to the guild's config
// row, creating the row first if it does not exist yet. Keys of fields are
// GORM column names (e.g. "welcome_channel").
func UpdateGuildConfig(ctx context.Context, db *gorm.DB, guildID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, err := GetGuildConfig(ctx, db, guildID); err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.GuildConfig{}).
		Where("guild_id = ?", guildID).
		Updates(fields).Error
}

// UpsertTicketConfig persists the ticket setup wizard's draft in a single
// write keyed by guild id: update when a config row exists, insert otherwise.
func UpsertTicketConfig(ctx context.Context, db *gorm.DB, guildID string, fields map[string]any) error {
	return UpdateGuildConfig(ctx, db, guildID, fields)
}

// NextTicketNumber increments and returns the guild's running ticket counter.
func NextTicketNumber(ctx context.Context, db *gorm.DB, guildID string) (int, error) {
	var next int
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := GetGuildConfig(ctx, tx, guildID)
		if err != nil {
			return err
		}
		next = cfg.TicketCounter + 1
		res := tx.Model(&domain.GuildConfig{}).
			Where("guild_id = ?", guildID).
			Update("ticket_counter", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("guild config vanished during counter update")
		}
		return nil
	})
	return next, err
}
