package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashSessionStatus string

const (
	SessionOpen        CashSessionStatus = "OPEN"
	SessionClosed      CashSessionStatus = "CLOSED"
	SessionReopened    CashSessionStatus = "REOPENED"
	SessionTransferred CashSessionStatus = "TRANSFERRED"
	SessionReceived    CashSessionStatus = "RECEIVED"
)

// ActiveSessionStatuses are the statuses counted by the one-active-session-per-operator rule.
var ActiveSessionStatuses = []CashSessionStatus{SessionOpen, SessionReopened}

func (s CashSessionStatus) Valid() bool {
	switch s {
	case SessionOpen, SessionClosed, SessionReopened, SessionTransferred, SessionReceived:
		return true
	}
	return false
}

// Active reports whether ledger writes are allowed.
func (s CashSessionStatus) Active() bool {
	switch s {
	case SessionOpen, SessionReopened:
		return true
	}
	return false
}

type CashSession struct {
	ID             uint `gorm:"primaryKey"`
	CashRegisterID uint `gorm:"index;not null"`
	CashRegister   *CashRegister
	OperatorID     uint                `gorm:"index:idx_cash_sessions_operator_status;not null"`
	Status         CashSessionStatus   `gorm:"size:20;not null;index:idx_cash_sessions_operator_status"`
	OpeningAmount  decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	ExpectedAmount decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	CountedAmount  decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	Difference     decimal.NullDecimal `gorm:"type:numeric(14,2)"`

	OpenedAt      time.Time `gorm:"index;not null"`
	ClosedAt      *time.Time
	ClosedBy      *uint
	TransferredAt *time.Time
	ReceivedAt    *time.Time

	TreasurerUserID *uint
	ReopenReason    string `gorm:"size:500"`
	ReopenedAt      *time.Time
	ReopenedBy      *uint
	ReopenCount     int    `gorm:"not null;default:0"`
	CloseRound      int    `gorm:"not null;default:0"` // kaçıncı kapanış
	Notes           string `gorm:"size:1000"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
