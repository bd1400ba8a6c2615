package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/models"
)

type recorder struct {
	logs []models.AuditLog
	err  error
}

func (r *recorder) CreateAuditLog(_ context.Context, l *models.AuditLog) error {
	if r.err != nil {
		return r.err
	}
	r.logs = append(r.logs, *l)
	return nil
}

func TestWriteLog(t *testing.T) {
	reg := uint(3)
	w := &recorder{}

	err := WriteLog(context.Background(), w, LogOptions{
		CashRegisterID: &reg,
		UserID:         7,
		UserName:       "ayse",
		EntityType:     "cash_session",
		EntityID:       11,
		Action:         models.AuditActionOpen,
		Description:    "Kasa açıldı",
		After:          map[string]string{"status": "OPEN"},
	})
	require.NoError(t, err)
	require.Len(t, w.logs, 1)

	got := w.logs[0]
	assert.Equal(t, "null", got.BeforeData)
	assert.JSONEq(t, `{"status":"OPEN"}`, got.AfterData)
	assert.Equal(t, &reg, got.CashRegisterID)
	assert.Equal(t, models.AuditActionOpen, got.Action)
}

func TestWriteLogWrapsError(t *testing.T) {
	boom := errors.New("db down")
	err := WriteLog(context.Background(), &recorder{err: boom}, LogOptions{EntityType: "x"})
	assert.ErrorIs(t, err, boom)
}
