// Package store is the persistence port of the cash engine.
//
// Every mutating cash operation runs inside Repository.Transaction. Reads that
// end in ForUpdate take a row lock that is held until the transaction ends, so
// a check made on the locked row stays valid until the write commits.
package store

import (
	"context"
	"errors"
	"time"

	"restoran-kasa/internal/models"
)

var (
	ErrNotFound  = errors.New("kayıt bulunamadı")
	ErrDuplicate = errors.New("kayıt zaten mevcut")
	// ErrActiveSessionExists is returned when an insert or status change would
	// leave an operator with two OPEN/REOPENED sessions.
	ErrActiveSessionExists = errors.New("operatörün aktif kasa oturumu var")
)

type SessionFilter struct {
	Status         *models.CashSessionStatus
	OperatorID     *uint
	CashRegisterID *uint
	OpenedFrom     *time.Time // dahil
	OpenedTo       *time.Time // hariç
	Limit          int
	Offset         int
}

type TransferFilter struct {
	PendingOnly bool
	Limit       int
	Offset      int
}

type Repository interface {
	// Transaction runs fn atomically; fn's error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	GetCashRegister(ctx context.Context, id uint) (*models.CashRegister, error)

	CreateSession(ctx context.Context, s *models.CashSession) error
	UpdateSession(ctx context.Context, s *models.CashSession) error
	GetSession(ctx context.Context, id uint) (*models.CashSession, error)
	GetSessionForUpdate(ctx context.Context, id uint) (*models.CashSession, error)
	FindActiveSessionByOperator(ctx context.Context, operatorID uint) (*models.CashSession, error)
	// LockOperator serializes session opening for one operator until the transaction ends.
	LockOperator(ctx context.Context, operatorID uint) error
	ListSessions(ctx context.Context, f SessionFilter) ([]models.CashSession, error)
	CountActiveSessions(ctx context.Context) (int64, error)

	CreateTransaction(ctx context.Context, t *models.CashTransaction) error
	UpdateTransactionMetadata(ctx context.Context, t *models.CashTransaction) error
	GetTransactionForUpdate(ctx context.Context, id uint) (*models.CashTransaction, error)
	ListTransactions(ctx context.Context, sessionID uint) ([]models.CashTransaction, error)
	ListTransactionsBySessions(ctx context.Context, sessionIDs []uint) ([]models.CashTransaction, error)

	CreateCounts(ctx context.Context, counts []models.CashCount) error
	ListCounts(ctx context.Context, sessionID uint) ([]models.CashCount, error)

	CreateTransfer(ctx context.Context, t *models.CashTransfer) error
	UpdateTransfer(ctx context.Context, t *models.CashTransfer) error
	GetTransfer(ctx context.Context, id uint) (*models.CashTransfer, error)
	GetTransferForUpdate(ctx context.Context, id uint) (*models.CashTransfer, error)
	GetTransferBySession(ctx context.Context, sessionID uint) (*models.CashTransfer, error)
	ListTransfers(ctx context.Context, f TransferFilter) ([]models.CashTransfer, error)

	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
}
