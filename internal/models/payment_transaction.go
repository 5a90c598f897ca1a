package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment transaction statuses.
const (
	// StatusPending marks a transaction awaiting gateway confirmation.
	StatusPending = "pending"
	// StatusSuccess marks a settled, credited transaction. Terminal.
	StatusSuccess = "success"
	// StatusFailed marks a cancelled, denied or expired transaction. Terminal.
	StatusFailed = "failed"
	// StatusChallenge marks a capture held by the gateway fraud check.
	StatusChallenge = "challenge"
)

// PaymentTransaction stores one purchase attempt keyed by its gateway order id.
type PaymentTransaction struct {
	OrderID string `gorm:"primaryKey;type:varchar(255)"` // Gateway-facing order identifier.

	UserID string `gorm:"type:varchar(255);not null;index"` // Purchasing user.
	PlanID string `gorm:"type:varchar(50);not null"`        // Purchased plan.
	Amount int64  `gorm:"not null"`                         // Price in integral currency units.

	Status     string `gorm:"type:varchar(50);not null;default:'pending'"` // Lifecycle status.
	PaymentURL string `gorm:"type:text"`                                   // QR image locator from the gateway.

	RawPayload datatypes.JSON `gorm:"type:jsonb"` // Last-seen confirmation payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (PaymentTransaction) TableName() string {
	return "transactions"
}

// Terminal reports whether the status admits no further transition.
func (t PaymentTransaction) Terminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}
