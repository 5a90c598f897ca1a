package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdulaziz27/analisisaham-ai/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateOrder indicates an insert for an order id that already exists.
var ErrDuplicateOrder = errors.New("payment: duplicate order id")

// Store owns the per-order transaction records.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Create inserts a new pending transaction row.
func (s *Store) Create(ctx context.Context, userID, planID string, amount int64, orderID, paymentURL string) (*models.PaymentTransaction, error) {
	row := models.PaymentTransaction{
		OrderID:    orderID,
		UserID:     userID,
		PlanID:     planID,
		Amount:     amount,
		Status:     models.StatusPending,
		PaymentURL: paymentURL,
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("payment: create order %s: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrDuplicateOrder
	}
	return &row, nil
}

// GetByOrderID loads a transaction row. Absence is reported as
// gorm.ErrRecordNotFound.
func (s *Store) GetByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	return getByOrderID(ctx, s.db, orderID)
}

func getByOrderID(ctx context.Context, tx *gorm.DB, orderID string) (*models.PaymentTransaction, error) {
	var row models.PaymentTransaction
	if errTake := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		Take(&row).Error; errTake != nil {
		if errors.Is(errTake, gorm.ErrRecordNotFound) {
			return nil, errTake
		}
		return nil, fmt.Errorf("payment: load order %s: %w", orderID, errTake)
	}
	return &row, nil
}

// ApplyStatus transitions the order to newStatus and stores the raw gateway
// payload, unless the row is already terminal. The guard and the write are one
// conditional update, so concurrent deliveries for the same order cannot both
// observe a non-terminal row and both apply. Returns whether the transition
// was applied.
func (s *Store) ApplyStatus(ctx context.Context, orderID, newStatus string, rawPayload []byte) (bool, *models.PaymentTransaction, error) {
	var applied bool
	var row *models.PaymentTransaction
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errApply error
		applied, row, errApply = applyStatusTx(ctx, tx, orderID, newStatus, rawPayload)
		return errApply
	})
	if errTx != nil {
		return false, nil, errTx
	}
	return applied, row, nil
}

// applyStatusTx is ApplyStatus bound to the caller's transaction.
func applyStatusTx(ctx context.Context, tx *gorm.DB, orderID, newStatus string, rawPayload []byte) (bool, *models.PaymentTransaction, error) {
	updates := map[string]any{
		"status": newStatus,
	}
	if len(rawPayload) > 0 {
		updates["raw_payload"] = datatypes.JSON(rawPayload)
	}
	res := tx.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("order_id = ? AND status NOT IN ?", orderID, []string{models.StatusSuccess, models.StatusFailed}).
		Updates(updates)
	if res.Error != nil {
		return false, nil, fmt.Errorf("payment: apply status %s to order %s: %w", newStatus, orderID, res.Error)
	}

	row, errGet := getByOrderID(ctx, tx, orderID)
	if errGet != nil {
		return false, nil, errGet
	}
	return res.RowsAffected > 0, row, nil
}
