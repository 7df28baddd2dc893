// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Birthday
// model.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"guildkeeper/internal/domain"
)

// UpsertBirthday stores or replaces a member's birthday (month/day).
// Changing the date also resets the announcement marker.
func UpsertBirthday(ctx context.Context, db *gorm.DB, guildID, userID string, month, day int) error {
	b := &domain.Birthday{
		GuildID: guildID,
		UserID:  userID,
		Month:   month,
		Day:     day,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"month": month, "day": day, "announced_on": ""}),
		}).
		Create(b).Error
}

// DeleteBirthday removes a member's stored birthday. Missing rows return
// ErrNotFound.
func DeleteBirthday(ctx context.Context, db *gorm.DB, guildID, userID string) error {
	res := db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&domain.Birthday{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDueBirthdays returns birthdays matching the given month/day that have
// not yet been announced on date (YYYY-MM-DD).
func ListDueBirthdays(ctx context.Context, db *gorm.DB, month, day int, date string) ([]domain.Birthday, error) {
	var out []domain.Birthday
	err := db.WithContext(ctx).
		Where("month = ? AND day = ? AND announced_on <> ?", month, day, date).
		Find(&out).Error
	return out, err
}

// MarkBirthdayAnnounced stamps the row with the announcement date so the
// sweep skips it for the rest of the day.
func MarkBirthdayAnnounced(ctx context.Context, db *gorm.DB, id uint, date string) error {
	return db.WithContext(ctx).
		Model(&domain.Birthday{}).
		Where("id = ?", id).
		Update("announced_on", date).Error
}
