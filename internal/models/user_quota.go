package models

import "time"

// UserQuota stores the per-user analysis request balance.
type UserQuota struct {
	UserID string `gorm:"primaryKey;type:varchar(255)"` // Telegram user identifier.

	RequestsRemaining int `gorm:"not null;default:0"` // Spendable balance, never negative.
	TotalRequests     int `gorm:"not null;default:0"` // Lifetime successful spends.

	Username     *string `gorm:"type:varchar(255)"` // Telegram handle, if known.
	FirstName    *string `gorm:"type:varchar(255)"` // Given name, if known.
	LastName     *string `gorm:"type:varchar(255)"` // Family name, if known.
	LanguageCode *string `gorm:"type:varchar(10)"`  // Client locale, if known.
	IsPremium    *bool   // Telegram premium flag, if known.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last mutation timestamp.
}

// TableName overrides the default table name.
func (UserQuota) TableName() string {
	return "user_quotas"
}
