package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"restoran-kasa/internal/models"
)

type LogOptions struct {
	CashRegisterID *uint
	UserID         uint
	UserName       string
	EntityType     string
	EntityID       uint
	Action         models.AuditAction
	Description    string
	Before         any
	After          any
}

// Writer persists audit rows. store.Repository satisfies it.
type Writer interface {
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
}

// GormWriter writes audit rows straight through a *gorm.DB.
type GormWriter struct {
	DB *gorm.DB
}

func (w GormWriter) CreateAuditLog(ctx context.Context, l *models.AuditLog) error {
	return w.DB.WithContext(ctx).Create(l).Error
}

// Build renders opts into an AuditLog row without writing it.
func Build(opts LogOptions) models.AuditLog {
	// jsonb kolonu boş string kabul etmez, "null" yazıyoruz
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	return models.AuditLog{
		CashRegisterID: opts.CashRegisterID,
		UserID:         opts.UserID,
		UserName:       opts.UserName,
		EntityType:     opts.EntityType,
		EntityID:       opts.EntityID,
		Action:         opts.Action,
		Description:    opts.Description,
		BeforeData:     beforeStr,
		AfterData:      afterStr,
	}
}

func WriteLog(ctx context.Context, w Writer, opts LogOptions) error {
	log := Build(opts)
	if err := w.CreateAuditLog(ctx, &log); err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}
