package models

import "time"

type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionOpen     AuditAction = "open"
	AuditActionClose    AuditAction = "close"
	AuditActionReopen   AuditAction = "reopen"
	AuditActionCancel   AuditAction = "cancel"
	AuditActionTransfer AuditAction = "transfer"
	AuditActionReceive  AuditAction = "receive"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Hangi kasa?
	CashRegisterID *uint `gorm:"index" json:"cash_register_id"`

	UserID   uint   `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"`

	// ör: "cash_session", "cash_transaction", "cash_transfer", "cash_register", "user"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
