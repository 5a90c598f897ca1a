package quota

import (
	"context"
	"fmt"

	"github.com/abdulaziz27/analisisaham-ai/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FreeTierGrant is the balance given to a user on first reference.
const FreeTierGrant = 3

// ProfilePatch carries optional profile attributes. A nil field leaves the
// stored value untouched; a non-nil field overwrites it.
type ProfilePatch struct {
	Username     *string
	FirstName    *string
	LastName     *string
	LanguageCode *string
	IsPremium    *bool
}

// empty reports whether the patch carries no fields.
func (p ProfilePatch) empty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil &&
		p.LanguageCode == nil && p.IsPremium == nil
}

// Balance is a snapshot of a user's quota counters.
type Balance struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// Ledger owns the per-user balance records.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger backed by GORM.
func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

// ensure inserts the user row with the free-tier grant when absent.
func ensure(ctx context.Context, tx *gorm.DB, userID string) error {
	row := models.UserQuota{
		UserID:            userID,
		RequestsRemaining: FreeTierGrant,
		TotalRequests:     0,
	}
	if errCreate := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error; errCreate != nil {
		return fmt.Errorf("quota: ensure user %s: %w", userID, errCreate)
	}
	return nil
}

// EnsureAndPatch creates the record when absent, applies the profile patch and
// returns the current balance.
func (l *Ledger) EnsureAndPatch(ctx context.Context, userID string, patch ProfilePatch) (Balance, error) {
	if errEnsure := ensure(ctx, l.db, userID); errEnsure != nil {
		return Balance{}, errEnsure
	}

	if !patch.empty() {
		updates := map[string]any{}
		if patch.Username != nil {
			updates["username"] = *patch.Username
		}
		if patch.FirstName != nil {
			updates["first_name"] = *patch.FirstName
		}
		if patch.LastName != nil {
			updates["last_name"] = *patch.LastName
		}
		if patch.LanguageCode != nil {
			updates["language_code"] = *patch.LanguageCode
		}
		if patch.IsPremium != nil {
			updates["is_premium"] = *patch.IsPremium
		}
		if errUpdate := l.db.WithContext(ctx).
			Model(&models.UserQuota{}).
			Where("user_id = ?", userID).
			Updates(updates).Error; errUpdate != nil {
			return Balance{}, fmt.Errorf("quota: patch profile for %s: %w", userID, errUpdate)
		}
	}

	var row models.UserQuota
	if errTake := l.db.WithContext(ctx).
		Select("requests_remaining", "total_requests").
		Where("user_id = ?", userID).
		Take(&row).Error; errTake != nil {
		return Balance{}, fmt.Errorf("quota: load balance for %s: %w", userID, errTake)
	}
	return Balance{Remaining: row.RequestsRemaining, Total: row.TotalRequests}, nil
}

// HasQuota reports whether the user can spend a unit. A brand-new user is
// created with the free-tier grant and can.
func (l *Ledger) HasQuota(ctx context.Context, userID string) (bool, error) {
	if errEnsure := ensure(ctx, l.db, userID); errEnsure != nil {
		return false, errEnsure
	}

	var row models.UserQuota
	if errTake := l.db.WithContext(ctx).
		Select("requests_remaining").
		Where("user_id = ?", userID).
		Take(&row).Error; errTake != nil {
		return false, fmt.Errorf("quota: load balance for %s: %w", userID, errTake)
	}
	return row.RequestsRemaining > 0, nil
}

// Decrement spends one unit. The decrement and the lifetime counter bump are a
// single conditional update guarded by requests_remaining > 0, so concurrent
// callers against the same balance can never overspend. Returns whether the
// unit was deducted.
func (l *Ledger) Decrement(ctx context.Context, userID string) (bool, error) {
	if errEnsure := ensure(ctx, l.db, userID); errEnsure != nil {
		return false, errEnsure
	}

	res := l.db.WithContext(ctx).
		Model(&models.UserQuota{}).
		Where("user_id = ? AND requests_remaining > 0", userID).
		Updates(map[string]any{
			"requests_remaining": gorm.Expr("requests_remaining - 1"),
			"total_requests":     gorm.Expr("total_requests + 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("quota: decrement for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.Warnf("quota: user %s attempted decrement with empty balance", userID)
		return false, nil
	}
	return true, nil
}

// Credit adds amount to the user's balance, creating the record first when
// absent, and returns the new balance. Callers are responsible for invoking
// this at most once per paid order.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int) (int, error) {
	return l.CreditTx(ctx, l.db, userID, amount)
}

// CreditTx is Credit executed on the supplied handle, so the reconciler can
// bind the credit to the same transaction as the order status change.
func (l *Ledger) CreditTx(ctx context.Context, tx *gorm.DB, userID string, amount int) (int, error) {
	if errEnsure := ensure(ctx, tx, userID); errEnsure != nil {
		return 0, errEnsure
	}

	if errUpdate := tx.WithContext(ctx).
		Model(&models.UserQuota{}).
		Where("user_id = ?", userID).
		Update("requests_remaining", gorm.Expr("requests_remaining + ?", amount)).Error; errUpdate != nil {
		return 0, fmt.Errorf("quota: credit %d to %s: %w", amount, userID, errUpdate)
	}

	var row models.UserQuota
	if errTake := tx.WithContext(ctx).
		Select("requests_remaining").
		Where("user_id = ?", userID).
		Take(&row).Error; errTake != nil {
		return 0, fmt.Errorf("quota: load balance for %s: %w", userID, errTake)
	}
	return row.RequestsRemaining, nil
}
