package audit

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-kasa/internal/api"
	"restoran-kasa/internal/models"
)

type AuditLogResponse struct {
	ID             uint               `json:"id"`
	CreatedAt      string             `json:"created_at"`
	CashRegisterID *uint              `json:"cash_register_id"`
	UserID         uint               `json:"user_id"`
	UserName       string             `json:"user_name"`
	EntityType     string             `json:"entity_type"`
	EntityID       uint               `json:"entity_id"`
	Action         models.AuditAction `json:"action"`
	Description    string             `json:"description"`
	BeforeData     string             `json:"before_data"`
	AfterData      string             `json:"after_data"`
}

// GET /api/audit-logs?entity_type=cash_session&entity_id=1&user_id=2&cash_register_id=1
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := db.WithContext(c.UserContext()).Model(&models.AuditLog{})

		if et := c.Query("entity_type"); et != "" {
			dbq = dbq.Where("entity_type = ?", et)
		}

		entityID, err := api.QueryUint(c, "entity_id")
		if err != nil {
			return err
		}
		if entityID != nil {
			dbq = dbq.Where("entity_id = ?", *entityID)
		}

		userID, err := api.QueryUint(c, "user_id")
		if err != nil {
			return err
		}
		if userID != nil {
			dbq = dbq.Where("user_id = ?", *userID)
		}

		registerID, err := api.QueryUint(c, "cash_register_id")
		if err != nil {
			return err
		}
		if registerID != nil {
			dbq = dbq.Where("cash_register_id = ?", *registerID)
		}

		limit, err := api.QueryInt(c, "limit", 100, 500)
		if err != nil {
			return err
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Loglar listelenemedi")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, AuditLogResponse{
				ID:             l.ID,
				CreatedAt:      l.CreatedAt.Format("2006-01-02 15:04:05"),
				CashRegisterID: l.CashRegisterID,
				UserID:         l.UserID,
				UserName:       l.UserName,
				EntityType:     l.EntityType,
				EntityID:       l.EntityID,
				Action:         l.Action,
				Description:    l.Description,
				BeforeData:     l.BeforeData,
				AfterData:      l.AfterData,
			})
		}

		return api.OK(c, resp, "")
	}
}
