package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

func newSession(operatorID uint, status models.CashSessionStatus) *models.CashSession {
	return &models.CashSession{
		CashRegisterID: 1,
		OperatorID:     operatorID,
		Status:         status,
		OpeningAmount:  decimal.NewFromInt(100),
		OpenedAt:       time.Now(),
	}
}

func TestTransactionRollback(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx store.Repository) error {
		require.NoError(t, tx.CreateSession(ctx, newSession(1, models.SessionOpen)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindActiveSessionByOperator(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// id sayacı da geri alınır
	sess := newSession(1, models.SessionOpen)
	require.NoError(t, s.CreateSession(ctx, sess))
	assert.Equal(t, uint(1), sess.ID)
}

func TestTransactionCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().Transaction(ctx, func(store.Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestActiveSessionUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := newSession(1, models.SessionOpen)
	require.NoError(t, s.CreateSession(ctx, first))
	assert.ErrorIs(t, s.CreateSession(ctx, newSession(1, models.SessionOpen)), store.ErrActiveSessionExists)

	// başka operatör serbest
	require.NoError(t, s.CreateSession(ctx, newSession(2, models.SessionOpen)))

	first.Status = models.SessionClosed
	require.NoError(t, s.UpdateSession(ctx, first))
	second := newSession(1, models.SessionOpen)
	require.NoError(t, s.CreateSession(ctx, second))

	// kapalı oturum, aktif bir kardeşi varken yeniden açılamaz
	first.Status = models.SessionReopened
	assert.ErrorIs(t, s.UpdateSession(ctx, first), store.ErrActiveSessionExists)
}

func TestTransfers(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := newSession(1, models.SessionTransferred)
	b := newSession(2, models.SessionReceived)
	require.NoError(t, s.CreateSession(ctx, a))
	require.NoError(t, s.CreateSession(ctx, b))

	base := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	ta := &models.CashTransfer{Reference: "TRF-A", CashSessionID: a.ID, ExpectedAmount: decimal.NewFromInt(50), TransferredAt: base.Add(time.Minute)}
	tb := &models.CashTransfer{Reference: "TRF-B", CashSessionID: b.ID, ExpectedAmount: decimal.NewFromInt(80), TransferredAt: base}
	require.NoError(t, s.CreateTransfer(ctx, ta))
	require.NoError(t, s.CreateTransfer(ctx, tb))

	dup := &models.CashTransfer{Reference: "TRF-C", CashSessionID: a.ID, TransferredAt: base}
	assert.ErrorIs(t, s.CreateTransfer(ctx, dup), store.ErrDuplicate)

	all, err := s.ListTransfers(ctx, store.TransferFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "TRF-B", all[0].Reference)

	pending, err := s.ListTransfers(ctx, store.TransferFilter{PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ta.ID, pending[0].ID)

	got, err := s.GetTransferBySession(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRF-B", got.Reference)
}

func TestListSessionsPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sess := newSession(uint(i+1), models.SessionClosed)
		sess.OpenedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.CreateSession(ctx, sess))
	}

	page, err := s.ListSessions(ctx, store.SessionFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// en yeni önce
	assert.Equal(t, uint(4), page[0].ID)
	assert.Equal(t, uint(3), page[1].ID)

	from, to := base.Add(time.Hour), base.Add(3*time.Hour)
	window, err := s.ListSessions(ctx, store.SessionFilter{OpenedFrom: &from, OpenedTo: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)
}
