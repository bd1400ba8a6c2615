package cashflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

func TestTransferToTreasury_OnlyFromClosed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.open(t, operator, "100")
	e.sale(t, sess.ID, "250", models.PaymentCash)

	_, err := e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, By: operator})
	assert.Equal(t, apperr.KindBusiness, apperr.KindOf(err), "open")

	e.closeWith(t, sess.ID, "350", "")
	tr, err := e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, Notes: "zarf 12", By: operator})
	require.NoError(t, err)
	assert.Equal(t, "250.00", money(tr.ExpectedAmount))
	assert.True(t, strings.HasPrefix(tr.Reference, "TRF-"))
	assert.Nil(t, tr.ReceivedAt)

	d, err := e.svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionTransferred, d.Session.Status)
	require.NotNil(t, d.Session.TransferredAt)
	require.NotNil(t, d.Transfer)
	assert.Equal(t, tr.ID, d.Transfer.ID)

	_, err = e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, By: operator})
	assert.Equal(t, apperr.KindBusiness, apperr.KindOf(err), "already transferred")

	_, err = e.svc.TransferToTreasury(ctx, TransferInput{SessionID: 999, By: operator})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestTransferToTreasury_ReopenedIsNotTransferable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.open(t, operator, "100")
	e.closeWith(t, sess.ID, "100", "")
	_, err := e.svc.ReopenSession(ctx, ReopenSessionInput{SessionID: sess.ID, Reason: "eksik satış girişi", Supervisor: supervisor})
	require.NoError(t, err)

	_, err = e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, By: operator})
	assert.Equal(t, apperr.KindBusiness, apperr.KindOf(err))
}

func TestTransferToTreasury_NegativeAmountRecorded(t *testing.T) {
	e := newEnv(t)
	sess := e.open(t, operator, "100")
	e.closeWith(t, sess.ID, "90", "para eksik, operatör bilgilendirildi")

	tr, err := e.svc.TransferToTreasury(context.Background(), TransferInput{SessionID: sess.ID, By: operator})
	require.NoError(t, err)
	assert.Equal(t, "-10.00", money(tr.ExpectedAmount))
}

func TestConfirmReceipt_ExactlyOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess := e.open(t, operator, "100")
	e.sale(t, sess.ID, "200", models.PaymentCash)
	e.closeWith(t, sess.ID, "300", "")
	tr, err := e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, By: operator})
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	got, err := e.svc.ConfirmReceipt(ctx, ReceiptInput{TransferID: tr.ID, ReceivedAmount: dec("195"), Notes: "5 eksik", ReceivedBy: treasurer})
	require.NoError(t, err)
	assert.Equal(t, "195.00", money(got.ReceivedAmount.Decimal))
	assert.Equal(t, "-5.00", money(got.Difference.Decimal))
	assert.Equal(t, &treasurer.ID, got.ReceivedBy)
	require.NotNil(t, got.ReceivedAt)
	assert.Equal(t, e.clock.Now(), *got.ReceivedAt)

	d, err := e.svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionReceived, d.Session.Status)
	assert.Equal(t, &treasurer.ID, d.Session.TreasurerUserID)

	_, err = e.svc.ConfirmReceipt(ctx, ReceiptInput{TransferID: tr.ID, ReceivedAmount: dec("200"), ReceivedBy: treasurer})
	assert.Equal(t, apperr.KindBusiness, apperr.KindOf(err))

	// İkinci deneme hiçbir şeyi değiştirmez
	again, err := e.svc.GetTransfer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "195.00", money(again.ReceivedAmount.Decimal))

	_, err = e.svc.ConfirmReceipt(ctx, ReceiptInput{TransferID: 999, ReceivedAmount: dec("1"), ReceivedBy: treasurer})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = e.svc.ConfirmReceipt(ctx, ReceiptInput{TransferID: tr.ID, ReceivedAmount: dec("-1"), ReceivedBy: treasurer})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListPendingTransfers_FIFO(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var ids []uint
	for _, op := range []Actor{operator, operator2, {ID: 12, Name: "Zeynep"}} {
		sess := e.open(t, op, "100")
		e.sale(t, sess.ID, "50", models.PaymentCash)
		e.closeWith(t, sess.ID, "150", "")
		e.clock.Advance(10 * time.Minute)
		tr, err := e.svc.TransferToTreasury(ctx, TransferInput{SessionID: sess.ID, By: op})
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}

	pending, err := e.svc.ListPendingTransfers(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, p := range pending {
		assert.Equal(t, ids[i], p.ID)
		require.NotNil(t, p.CashSession)
		assert.Equal(t, models.SessionTransferred, p.CashSession.Status)
	}

	_, err = e.svc.ConfirmReceipt(ctx, ReceiptInput{TransferID: ids[0], ReceivedAmount: dec("50"), ReceivedBy: treasurer})
	require.NoError(t, err)

	pending, err = e.svc.ListPendingTransfers(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[1], pending[0].ID)

	all, err := e.svc.ListTransfers(ctx, store.TransferFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.SessionReceived, all[0].CashSession.Status)
}
