// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for giveaways and
// their entries.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"guildkeeper/internal/domain"
)

// ErrDuplicateEntry indicates the user already entered the giveaway.
var ErrDuplicateEntry = errors.New("already entered")

// CreateGiveaway inserts a new running giveaway with a fresh UUID.
func CreateGiveaway(ctx context.Context, db *gorm.DB, guildID, channelID, messageID, prize, createdBy string, winners int, endsAt time.Time) (*domain.Giveaway, error) {
	g := &domain.Giveaway{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		ChannelID:   channelID,
		MessageID:   messageID,
		Prize:       prize,
		WinnerCount: winners,
		EndsAt:      endsAt.UTC(),
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

// GetGiveaway fetches a giveaway by id, or ErrNotFound.
func GetGiveaway(ctx context.Context, db *gorm.DB, id string) (*domain.Giveaway, error) {
	var g domain.Giveaway
	if err := db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGiveawayByMessage fetches a giveaway by its Discord message id.
func GetGiveawayByMessage(ctx context.Context, db *gorm.DB, messageID string) (*domain.Giveaway, error) {
	var g domain.Giveaway
	if err := db.WithContext(ctx).Where("message_id = ?", messageID).First(&g).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// ListDueGiveaways returns giveaways whose end time has passed and that are
// not yet marked ended. Consumed by the expiry sweep.
func ListDueGiveaways(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.Giveaway, error) {
	var out []domain.Giveaway
	err := db.WithContext(ctx).
		Where("ended = ? AND ends_at <= ?", false, now.UTC()).
		Order("ends_at asc").
		Find(&out).Error
	return out, err
}

// MarkGiveawayEnded flips the ended flag; returns ErrNotFound when the row
// is missing or already ended, so the sweep processes each giveaway once.
func MarkGiveawayEnded(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Giveaway{}).
		Where("id = ? AND ended = ?", id, false).
		Update("ended", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddGiveawayEntry records a user's entry. A repeated click surfaces
// ErrDuplicateEntry via the unique (giveaway_id, user_id) index.
func AddGiveawayEntry(ctx context.Context, db *gorm.DB, giveawayID, userID string) error {
	e := &domain.GiveawayEntry{
		GiveawayID: giveawayID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return ErrDuplicateEntry
		}
		return err
	}
	return nil
}

// ListGiveawayEntrants returns the user ids entered into a giveaway, in
// entry order.
func ListGiveawayEntrants(ctx context.Context, db *gorm.DB, giveawayID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.GiveawayEntry{}).
		Where("giveaway_id = ?", giveawayID).
		Order("created_at asc").
		Pluck("user_id", &ids).Error
	return ids, err
}
