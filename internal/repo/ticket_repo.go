// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ticket
// model.
//
// Status transitions are enforced here with guarded updates so that the
// open -> (claimed)? -> closed ordering holds regardless of caller bugs or
// racing interactions: an UPDATE that finds no row in an eligible state
// affects zero rows and surfaces ErrInvalidTransition.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"guildkeeper/internal/domain"
)

// ErrInvalidTransition indicates an attempted ticket status change that
// violates the monotonic open -> claimed -> closed ordering.
var ErrInvalidTransition = errors.New("invalid ticket status transition")

// CreateTicket inserts a new open ticket row keyed by its backing channel.
func CreateTicket(ctx context.Context, db *gorm.DB, channelID, guildID, userID, categoryID string, number int) (*domain.Ticket, error) {
	t := &domain.Ticket{
		ChannelID:  channelID,
		GuildID:    guildID,
		UserID:     userID,
		CategoryID: categoryID,
		Number:     number,
		Status:     domain.TicketStatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTicket fetches the ticket backing channelID, or ErrNotFound.
func GetTicket(ctx context.Context, db *gorm.DB, channelID string) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := db.WithContext(ctx).Where("channel_id = ?", channelID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListOpenTickets returns all non-closed tickets for a guild, oldest first.
func ListOpenTickets(ctx context.Context, db *gorm.DB, guildID string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := db.WithContext(ctx).
		Where("guild_id = ? AND status <> ?", guildID, domain.TicketStatusClosed).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountOpenTickets returns the number of non-closed tickets a user has in a
// guild. Used to cap tickets per member.
func CountOpenTickets(ctx context.Context, db *gorm.DB, guildID, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("guild_id = ? AND user_id = ? AND status <> ?", guildID, userID, domain.TicketStatusClosed).
		Count(&total).Error
	return total, err
}

// ClaimTicket transitions an open ticket to claimed on behalf of staffID.
// Claiming a claimed or closed ticket returns ErrInvalidTransition.
func ClaimTicket(ctx context.Context, db *gorm.DB, channelID, staffID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("channel_id = ? AND status = ?", channelID, domain.TicketStatusOpen).
		Updates(map[string]any{
			"status":     domain.TicketStatusClaimed,
			"claimed_by": staffID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// CloseTicket transitions an open or claimed ticket to closed. Closing an
// already closed ticket returns ErrInvalidTransition; the row is retained
// for history either way.
func CloseTicket(ctx context.Context, db *gorm.DB, channelID string) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("channel_id = ? AND status IN ?", channelID, []string{domain.TicketStatusOpen, domain.TicketStatusClaimed}).
		Updates(map[string]any{
			"status":    domain.TicketStatusClosed,
			"closed_at": &now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}
