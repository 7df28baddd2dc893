// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// EconomyAccount model. Balances are last-write-wins; the only guarded
// operation is the daily claim, which is gated on the stored timestamp.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"guildkeeper/internal/domain"
)

// ErrDailyClaimed indicates the user already claimed the daily reward within
// the cooldown window.
var ErrDailyClaimed = errors.New("daily already claimed")

// GetAccount returns the member's account, creating a zero-balance row on
// first access.
func GetAccount(ctx context.Context, db *gorm.DB, guildID, userID string) (*domain.EconomyAccount, error) {
	var acc domain.EconomyAccount
	err := db.WithContext(ctx).
		Where(domain.EconomyAccount{GuildID: guildID, UserID: userID}).
		FirstOrCreate(&acc).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// AddBalance adjusts a member's balance by delta (may be negative) and
// returns the new balance.
func AddBalance(ctx context.Context, db *gorm.DB, guildID, userID string, delta int64) (int64, error) {
	acc, err := GetAccount(ctx, db, guildID, userID)
	if err != nil {
		return 0, err
	}
	newBal := acc.Balance + delta
	err = db.WithContext(ctx).
		Model(&domain.EconomyAccount{}).
		Where("id = ?", acc.ID).
		Update("balance", newBal).Error
	if err != nil {
		return 0, err
	}
	return newBal, nil
}

// ClaimDaily credits amount once per cooldown window. A claim inside the
// window returns ErrDailyClaimed with the remaining wait.
func ClaimDaily(ctx context.Context, db *gorm.DB, guildID, userID string, amount int64, cooldown time.Duration) (int64, time.Duration, error) {
	acc, err := GetAccount(ctx, db, guildID, userID)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now().UTC()
	if acc.LastDaily != nil {
		if wait := cooldown - now.Sub(*acc.LastDaily); wait > 0 {
			return acc.Balance, wait, ErrDailyClaimed
		}
	}
	newBal := acc.Balance + amount
	err = db.WithContext(ctx).
		Model(&domain.EconomyAccount{}).
		Where("id = ?", acc.ID).
		Updates(map[string]any{"balance": newBal, "last_daily": &now}).Error
	if err != nil {
		return 0, 0, err
	}
	return newBal, 0, nil
}

// Transfer moves amount from one member to another inside one transaction.
// Balances may go negative; robbery outcomes are resolved by the caller.
func Transfer(ctx context.Context, db *gorm.DB, guildID, fromUserID, toUserID string, amount int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := AddBalance(ctx, tx, guildID, fromUserID, -amount); err != nil {
			return err
		}
		_, err := AddBalance(ctx, tx, guildID, toUserID, amount)
		return err
	})
}
