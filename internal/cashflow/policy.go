package cashflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// Policy holds the monetary and timing limits enforced by the cash engine.
type Policy struct {
	MinOpeningAmount decimal.Decimal
	MaxOpeningAmount decimal.Decimal

	// Withdrawals above this need an authorizing user.
	WithdrawalAuthLimit decimal.Decimal

	// Break thresholds in percent of the expected cash.
	BreakNotifyPercent  decimal.Decimal
	BreakJustifyPercent decimal.Decimal

	ReopenWindow time.Duration
	MaxReopens   int

	ReopenReasonMin     int
	WithdrawalReasonMin int
	SupplyReasonMin     int
	CancelReasonMin     int
}

func DefaultPolicy() Policy {
	return Policy{
		MinOpeningAmount:    decimal.NewFromInt(50),
		MaxOpeningAmount:    decimal.NewFromInt(500),
		WithdrawalAuthLimit: decimal.NewFromInt(200),
		BreakNotifyPercent:  decimal.RequireFromString("0.5"),
		BreakJustifyPercent: decimal.NewFromInt(1),
		ReopenWindow:        24 * time.Hour,
		MaxReopens:          1,
		ReopenReasonMin:     10,
		WithdrawalReasonMin: 5,
		SupplyReasonMin:     0,
		CancelReasonMin:     5,
	}
}
