package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashCount is one denomination line of a physical count taken at close.
type CashCount struct {
	ID            uint            `gorm:"primaryKey"`
	CashSessionID uint            `gorm:"index;not null"`
	Round         int             `gorm:"not null"` // CashSession.CloseRound
	Denomination  decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Quantity      int             `gorm:"not null"`
	Total         decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt     time.Time
}
