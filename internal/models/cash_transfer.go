package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashTransfer moves a closed session's surplus into treasury custody.
type CashTransfer struct {
	ID             uint   `gorm:"primaryKey"`
	Reference      string `gorm:"size:40;uniqueIndex;not null"`
	CashSessionID  uint   `gorm:"uniqueIndex;not null"`
	CashSession    *CashSession
	TransferredBy  uint                `gorm:"not null"`
	ExpectedAmount decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	ReceivedBy     *uint
	ReceivedAmount decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	Difference     decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	TransferredAt  time.Time           `gorm:"index;not null"`
	ReceivedAt     *time.Time          `gorm:"index"`
	Notes          string              `gorm:"size:1000"`
	ReceiptNotes   string              `gorm:"size:1000"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
