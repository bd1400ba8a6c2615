package cashflow

import (
	"fmt"

	"github.com/shopspring/decimal"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CountLine is one denomination row of a physical count. Total is optional;
// when sent it must match Denomination × Quantity.
type CountLine struct {
	Denomination decimal.Decimal
	Quantity     int
	Total        *decimal.Decimal
}

type Reconciliation struct {
	ExpectedAmount    decimal.Decimal `json:"expected_amount"`
	CountedAmount     decimal.Decimal `json:"counted_amount"`
	Difference        decimal.Decimal `json:"difference"`
	DifferencePercent decimal.Decimal `json:"difference_percent"`

	// Above the notify threshold: oversight signal only.
	SignificantBreak bool `json:"significant_break"`
	// Above the justify threshold: close needs notes.
	RequiresJustification bool `json:"requires_justification"`
}

// Severity labels the break for logs and metrics; empty when below both thresholds.
func (r Reconciliation) Severity() string {
	switch {
	case r.RequiresJustification:
		return "justify"
	case r.SignificantBreak:
		return "notify"
	}
	return ""
}

// VerifyCounts checks every row and that the rows add up to counted.
// The returned rows carry no session or round yet.
func VerifyCounts(lines []CountLine, counted decimal.Decimal) ([]models.CashCount, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("Sayım satırı gerekli").WithField("counts", "en az bir satır")
	}

	var verr *apperr.Error
	fail := func(field, msg string) {
		if verr == nil {
			verr = apperr.Validation("Sayım satırları geçersiz")
		}
		verr.WithField(field, msg)
	}

	out := make([]models.CashCount, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	sum := decimal.Zero

	for i, l := range lines {
		prefix := fmt.Sprintf("counts[%d]", i)

		if !l.Denomination.IsPositive() || !twoPlaces(l.Denomination) {
			fail(prefix+".denomination", "pozitif, en fazla 2 ondalık")
			continue
		}
		if l.Quantity < 0 {
			fail(prefix+".quantity", "negatif olamaz")
			continue
		}
		key := l.Denomination.StringFixed(2)
		if seen[key] {
			fail(prefix+".denomination", "aynı değer birden fazla satırda")
			continue
		}
		seen[key] = true

		total := l.Denomination.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if l.Total != nil && !l.Total.Equal(total) {
			fail(prefix+".total", fmt.Sprintf("%s olmalı (değer × adet)", total.StringFixed(2)))
			continue
		}

		sum = sum.Add(total)
		out = append(out, models.CashCount{
			Denomination: l.Denomination,
			Quantity:     l.Quantity,
			Total:        total,
		})
	}

	if verr != nil {
		return nil, verr
	}
	if !sum.Equal(counted) {
		return nil, apperr.Validation("Sayım toplamı %s, sayılan tutar %s ile eşleşmiyor", sum.StringFixed(2), counted.StringFixed(2)).
			WithField("counted_amount", fmt.Sprintf("sayım toplamı %s", sum.StringFixed(2)))
	}
	return out, nil
}

// Reconcile derives the cash break. With nothing expected, any difference is 100%.
func (p Policy) Reconcile(expected, counted decimal.Decimal) Reconciliation {
	r := Reconciliation{
		ExpectedAmount: expected,
		CountedAmount:  counted,
		Difference:     counted.Sub(expected),
	}

	switch {
	case r.Difference.IsZero():
		r.DifferencePercent = decimal.Zero
	case expected.IsZero():
		r.DifferencePercent = hundred
	default:
		r.DifferencePercent = r.Difference.Abs().Div(expected.Abs()).Mul(hundred)
	}

	r.SignificantBreak = r.DifferencePercent.GreaterThan(p.BreakNotifyPercent)
	r.RequiresJustification = r.DifferencePercent.GreaterThan(p.BreakJustifyPercent)
	return r
}
