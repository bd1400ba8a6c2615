package cashflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/models"
)

func TestDailyConsolidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	day := e.clock.Now()

	// +5 fark, devredildi
	a := e.open(t, operator, "100")
	e.sale(t, a.ID, "100", models.PaymentCash)
	e.sale(t, a.ID, "40", models.PaymentDebit)
	e.closeWith(t, a.ID, "205", "fazla para, müşteri üstünü almadı")
	_, err := e.svc.TransferToTreasury(ctx, TransferInput{SessionID: a.ID, By: operator})
	require.NoError(t, err)

	// -8 fark, kapalı
	b := e.open(t, operator2, "100")
	e.sale(t, b.ID, "100", models.PaymentCash)
	e.sale(t, b.ID, "30", models.PaymentPix)
	_, err = e.svc.RecordWithdrawal(ctx, WithdrawalInput{SessionID: b.ID, Amount: dec("20"), Reason: "kurye ödemesi", User: operator2})
	require.NoError(t, err)
	e.closeWith(t, b.ID, "172", "sayımda eksik çıktı")

	// Açık oturum: satış sayılır, fark sayılmaz
	open := Actor{ID: 12, Name: "Zeynep"}
	c := e.open(t, open, "50")
	e.sale(t, c.ID, "10", models.PaymentCash)
	_, err = e.svc.RecordSupply(ctx, SupplyInput{SessionID: c.ID, Amount: dec("15"), Reason: "bozukluk", User: open})
	require.NoError(t, err)

	// Ertesi gün açılan oturum dışarıda kalır
	e.clock.Advance(24 * time.Hour)
	e.open(t, Actor{ID: 13, Name: "Can"}, "100")

	rep, err := e.svc.GetDailyConsolidation(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", rep.Date)
	assert.Equal(t, 3, rep.SessionCount)
	assert.Equal(t, 1, rep.OpenSessions)
	assert.Equal(t, "13.00", money(rep.TotalBreaks))
	assert.Equal(t, "105.00", money(rep.TotalTransferred))
	assert.Equal(t, "280.00", money(rep.TotalSales))
	assert.Equal(t, "210.00", money(rep.TotalCash))
	assert.Equal(t, "40.00", money(rep.TotalCard))
	assert.Equal(t, "30.00", money(rep.TotalPix))
	assert.Equal(t, "20.00", money(rep.TotalWithdrawals))
	assert.Equal(t, "15.00", money(rep.TotalSupplies))

	require.Len(t, rep.Sessions, 3)
	assert.Equal(t, []uint{a.ID, b.ID, c.ID}, []uint{rep.Sessions[0].SessionID, rep.Sessions[1].SessionID, rep.Sessions[2].SessionID})
	assert.Equal(t, "5.00", money(rep.Sessions[0].Difference))
	assert.Equal(t, "105.00", money(rep.Sessions[0].Transferred))
	assert.Equal(t, "-8.00", money(rep.Sessions[1].Difference))
	assert.True(t, rep.Sessions[2].ExpectedAmount.IsZero())
	assert.True(t, rep.Sessions[2].Difference.IsZero())
}

func TestDailyConsolidation_TransferMatchesTreasury(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.open(t, operator, "120")
	e.sale(t, sess.ID, "80", models.PaymentCash)
	e.closeWith(t, sess.ID, "200", "")
	tr, err := e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, By: operator})
	require.NoError(t, err)
	_, err = e.svc.ConfirmReceipt(ctx, ReceiptInput{TransferID: tr.ID, ReceivedAmount: dec("80"), ReceivedBy: treasurer})
	require.NoError(t, err)

	rep, err := e.svc.GetDailyConsolidation(ctx, e.clock.Now())
	require.NoError(t, err)
	assert.True(t, rep.TotalTransferred.Equal(tr.ExpectedAmount))
}

func TestDailyConsolidation_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	e := newEnv(t, WithLocation(loc))
	// 11 Mart 02:00 UTC = 10 Mart 23:00 yerel
	e.clock.Set(time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC))
	sess := e.open(t, operator, "100")

	rep, err := e.svc.GetDailyConsolidation(context.Background(), time.Date(2025, 3, 10, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	require.Len(t, rep.Sessions, 1)
	assert.Equal(t, sess.ID, rep.Sessions[0].SessionID)

	rep, err = e.svc.GetDailyConsolidation(context.Background(), time.Date(2025, 3, 11, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Empty(t, rep.Sessions)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	start, end := DayBounds(time.Date(2025, 3, 11, 1, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
