package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CashTransactionType string

const (
	TxOpening    CashTransactionType = "OPENING"
	TxSale       CashTransactionType = "SALE"
	TxWithdrawal CashTransactionType = "WITHDRAWAL"
	TxSupply     CashTransactionType = "SUPPLY"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentDebit  PaymentMethod = "DEBIT"
	PaymentCredit PaymentMethod = "CREDIT"
	PaymentPix    PaymentMethod = "PIX"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentDebit, PaymentCredit, PaymentPix:
		return true
	}
	return false
}

// TransactionMetadata is stored as jsonb next to the ledger row.
type TransactionMetadata struct {
	SaleID       string           `json:"sale_id,omitempty"`
	ChangeGiven  *decimal.Decimal `json:"change_given,omitempty"`
	Reason       string           `json:"reason,omitempty"`
	AuthorizedBy *uint            `json:"authorized_by,omitempty"`

	Cancelled    bool       `json:"cancelled,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  *uint      `json:"cancelled_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
}

func (m TransactionMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *TransactionMetadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = TransactionMetadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: desteklenmeyen tip %T", src)
	}
	if len(raw) == 0 {
		*m = TransactionMetadata{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// CashTransaction is an immutable ledger row. Withdrawals are stored negative.
type CashTransaction struct {
	ID            uint                `gorm:"primaryKey"`
	CashSessionID uint                `gorm:"index;not null"`
	Type          CashTransactionType `gorm:"size:20;not null"`
	PaymentMethod *PaymentMethod      `gorm:"size:20"` // sadece SALE
	Amount        decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	Description   string              `gorm:"size:255"`
	UserID        uint                `gorm:"index;not null"`
	Timestamp     time.Time           `gorm:"index;not null"`
	Metadata      TransactionMetadata `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt     time.Time
}

func (t CashTransaction) Cancelled() bool {
	return t.Metadata.Cancelled
}
