package gormstore

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"restoran-kasa/internal/store"
)

func TestTranslate(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	serialization := &pgconn.PgError{Code: "40001"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"wrapped not found", fmt.Errorf("first: %w", gorm.ErrRecordNotFound), store.ErrNotFound},
		{
			"active session index",
			&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: ActiveSessionIndex},
			store.ErrActiveSessionExists,
		},
		{
			"other unique index",
			&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "idx_cash_transfers_cash_session_id"},
			store.ErrDuplicate,
		},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, store.ErrDuplicate},
		{"other pg error", serialization, serialization},
		{"passthrough", boom, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "uni_cash_registers_name"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create: %w", &pgconn.PgError{Code: pgUniqueViolation})))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
	assert.False(t, IsUniqueViolation(nil))
}
