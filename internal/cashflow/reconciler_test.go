package cashflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/apperr"
)

func TestReconcile(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name        string
		expected    string
		counted     string
		diff        string
		percent     string
		significant bool
		justify     bool
	}{
		{"exact", "160", "160", "0.00", "0.00", false, false},
		{"exactly half a percent", "200", "199", "-1.00", "0.50", false, false},
		{"notify only", "160", "159", "-1.00", "0.63", true, false},
		{"exactly one percent", "200", "202", "2.00", "1.00", true, false},
		{"needs justification", "160", "150", "-10.00", "6.25", true, true},
		{"over", "100", "105", "5.00", "5.00", true, true},
		{"nothing expected, nothing counted", "0", "0", "0.00", "0.00", false, false},
		{"nothing expected", "0", "3", "3.00", "100.00", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := p.Reconcile(dec(tt.expected), dec(tt.counted))
			assert.Equal(t, tt.diff, money(r.Difference))
			assert.Equal(t, tt.percent, r.DifferencePercent.StringFixed(2))
			assert.Equal(t, tt.significant, r.SignificantBreak)
			assert.Equal(t, tt.justify, r.RequiresJustification)
		})
	}
}

func TestReconcileSeverity(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, "", p.Reconcile(dec("100"), dec("100")).Severity())
	assert.Equal(t, "notify", p.Reconcile(dec("100"), dec("100.75")).Severity())
	assert.Equal(t, "justify", p.Reconcile(dec("100"), dec("98")).Severity())
}

func TestVerifyCounts(t *testing.T) {
	lines := []CountLine{
		{Denomination: dec("100"), Quantity: 1},
		{Denomination: dec("20"), Quantity: 2, Total: ptr(dec("40"))},
		{Denomination: dec("0.50"), Quantity: 4},
		{Denomination: dec("5"), Quantity: 0},
	}

	rows, err := VerifyCounts(lines, dec("142"))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "40.00", money(rows[1].Total))
	assert.Equal(t, "2.00", money(rows[2].Total))
	assert.True(t, rows[3].Total.IsZero())
}

func TestVerifyCounts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []CountLine
		counted decimal.Decimal
		field   string
	}{
		{"empty", nil, dec("0"), "counts"},
		{"wrong total", []CountLine{{Denomination: dec("10"), Quantity: 3, Total: ptr(dec("20"))}}, dec("20"), "counts[0].total"},
		{"negative quantity", []CountLine{{Denomination: dec("10"), Quantity: -1}}, dec("0"), "counts[0].quantity"},
		{"zero denomination", []CountLine{{Denomination: dec("0"), Quantity: 1}}, dec("0"), "counts[0].denomination"},
		{"duplicate denomination", []CountLine{
			{Denomination: dec("10"), Quantity: 1},
			{Denomination: dec("10.00"), Quantity: 1},
		}, dec("20"), "counts[1].denomination"},
		{"sum mismatch", []CountLine{{Denomination: dec("50"), Quantity: 3}}, dec("160"), "counted_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyCounts(tt.lines, tt.counted)
			require.Error(t, err)

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}
