// Package gormstore implements store.Repository on Postgres through GORM.
package gormstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store"
)

const (
	// ActiveSessionIndex is the partial unique index guarding one OPEN/REOPENED session per operator.
	ActiveSessionIndex = "uniq_cash_sessions_operator_active"

	// pg_advisory_xact_lock(int4, int4) namespace for operator locks.
	operatorLockNamespace int32 = 0x6b617361

	pgUniqueViolation = "23505"
)

type Repository struct {
	db *gorm.DB
}

var _ store.Repository = (*Repository)(nil)

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func clauseUpdateLock() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == ActiveSessionIndex {
		return store.ErrActiveSessionExists
	}
	if IsUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

// IsUniqueViolation reports a Postgres unique_violation (23505). The raw
// pgconn error is checked first because gorm's TranslateError drops the
// constraint name; gorm.ErrDuplicatedKey is accepted for translated errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *Repository) Transaction(ctx context.Context, fn func(tx store.Repository) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) GetCashRegister(ctx context.Context, id uint) (*models.CashRegister, error) {
	var reg models.CashRegister
	if err := r.conn(ctx).First(&reg, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &reg, nil
}

// sessions -------------------------------------------------------------------

func (r *Repository) CreateSession(ctx context.Context, s *models.CashSession) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Create(s).Error)
}

func (r *Repository) UpdateSession(ctx context.Context, s *models.CashSession) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Save(s).Error)
}

func (r *Repository) GetSession(ctx context.Context, id uint) (*models.CashSession, error) {
	var s models.CashSession
	if err := r.conn(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Repository) GetSessionForUpdate(ctx context.Context, id uint) (*models.CashSession, error) {
	var s models.CashSession
	if err := r.conn(ctx).Clauses(clauseUpdateLock()).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Repository) FindActiveSessionByOperator(ctx context.Context, operatorID uint) (*models.CashSession, error) {
	var s models.CashSession
	err := r.conn(ctx).
		Where("operator_id = ? AND status IN ?", operatorID, models.ActiveSessionStatuses).
		Order("id desc").
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Repository) LockOperator(ctx context.Context, operatorID uint) error {
	return r.conn(ctx).Exec("SELECT pg_advisory_xact_lock(?, ?)", operatorLockNamespace, int32(operatorID)).Error
}

func (r *Repository) CountActiveSessions(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.CashSession{}).
		Where("status IN ?", models.ActiveSessionStatuses).
		Count(&n).Error
	return n, err
}

func (r *Repository) ListSessions(ctx context.Context, f store.SessionFilter) ([]models.CashSession, error) {
	q := r.conn(ctx).Model(&models.CashSession{})
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.OperatorID != nil {
		q = q.Where("operator_id = ?", *f.OperatorID)
	}
	if f.CashRegisterID != nil {
		q = q.Where("cash_register_id = ?", *f.CashRegisterID)
	}
	if f.OpenedFrom != nil {
		q = q.Where("opened_at >= ?", *f.OpenedFrom)
	}
	if f.OpenedTo != nil {
		q = q.Where("opened_at < ?", *f.OpenedTo)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []models.CashSession
	if err := q.Order("opened_at desc, id desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// transactions ---------------------------------------------------------------

func (r *Repository) CreateTransaction(ctx context.Context, t *models.CashTransaction) error {
	return translate(r.conn(ctx).Create(t).Error)
}

func (r *Repository) UpdateTransactionMetadata(ctx context.Context, t *models.CashTransaction) error {
	res := r.conn(ctx).Model(&models.CashTransaction{}).
		Where("id = ?", t.ID).
		Update("metadata", t.Metadata)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) GetTransactionForUpdate(ctx context.Context, id uint) (*models.CashTransaction, error) {
	var t models.CashTransaction
	if err := r.conn(ctx).Clauses(clauseUpdateLock()).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, sessionID uint) ([]models.CashTransaction, error) {
	return r.ListTransactionsBySessions(ctx, []uint{sessionID})
}

func (r *Repository) ListTransactionsBySessions(ctx context.Context, sessionIDs []uint) ([]models.CashTransaction, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var out []models.CashTransaction
	err := r.conn(ctx).
		Where("cash_session_id IN ?", sessionIDs).
		Order("timestamp asc, id asc").
		Find(&out).Error
	return out, err
}

// counts ---------------------------------------------------------------------

func (r *Repository) CreateCounts(ctx context.Context, counts []models.CashCount) error {
	if len(counts) == 0 {
		return nil
	}
	return r.conn(ctx).Create(&counts).Error
}

func (r *Repository) ListCounts(ctx context.Context, sessionID uint) ([]models.CashCount, error) {
	var out []models.CashCount
	err := r.conn(ctx).
		Where("cash_session_id = ?", sessionID).
		Order("round asc, denomination desc").
		Find(&out).Error
	return out, err
}

// transfers ------------------------------------------------------------------

func (r *Repository) CreateTransfer(ctx context.Context, t *models.CashTransfer) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Create(t).Error)
}

func (r *Repository) UpdateTransfer(ctx context.Context, t *models.CashTransfer) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Save(t).Error)
}

func (r *Repository) GetTransfer(ctx context.Context, id uint) (*models.CashTransfer, error) {
	var t models.CashTransfer
	if err := r.conn(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *Repository) GetTransferForUpdate(ctx context.Context, id uint) (*models.CashTransfer, error) {
	var t models.CashTransfer
	if err := r.conn(ctx).Clauses(clauseUpdateLock()).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *Repository) GetTransferBySession(ctx context.Context, sessionID uint) (*models.CashTransfer, error) {
	var t models.CashTransfer
	if err := r.conn(ctx).First(&t, "cash_session_id = ?", sessionID).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *Repository) ListTransfers(ctx context.Context, f store.TransferFilter) ([]models.CashTransfer, error) {
	q := r.conn(ctx).Model(&models.CashTransfer{})
	if f.PendingOnly {
		q = q.Joins("JOIN cash_sessions ON cash_sessions.id = cash_transfers.cash_session_id").
			Where("cash_transfers.received_at IS NULL AND cash_sessions.status = ?", models.SessionTransferred)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []models.CashTransfer
	err := q.Order("cash_transfers.transferred_at asc, cash_transfers.id asc").Find(&out).Error
	return out, err
}

// audit ----------------------------------------------------------------------

func (r *Repository) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return r.conn(ctx).Create(l).Error
}
