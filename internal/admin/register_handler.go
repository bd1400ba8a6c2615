package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"restoran-kasa/internal/api"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/auth"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store/gormstore"
)

type CashRegisterResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type CreateCashRegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"max=255"`
}

type UpdateCashRegisterRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Location *string `json:"location" validate:"omitempty,max=255"`
	IsActive *bool   `json:"is_active"`
}

func toRegisterResponse(r *models.CashRegister) CashRegisterResponse {
	return CashRegisterResponse{
		ID:        r.ID,
		Name:      r.Name,
		Location:  r.Location,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func writeAudit(c *fiber.Ctx, db *gorm.DB, log *logrus.Entry, opts audit.LogOptions) {
	if p, err := auth.Current(c); err == nil {
		opts.UserID = p.UserID
		opts.UserName = p.Name
	}
	if err := audit.WriteLog(c.UserContext(), audit.GormWriter{DB: db}, opts); err != nil {
		log.WithError(err).Warn("Audit log yazılamadı")
	}
}

// ----------------------------------------
// KASA CRUD
// ----------------------------------------

func CreateCashRegisterHandler(db *gorm.DB, log *logrus.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCashRegisterRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kasa adı boş olamaz")
		}

		reg := models.CashRegister{
			Name:     body.Name,
			Location: strings.TrimSpace(body.Location),
			IsActive: true,
		}
		if err := db.Create(&reg).Error; err != nil {
			if gormstore.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kasa zaten var")
			}
			log.WithError(err).Error("Kasa oluşturulamadı")
			return fiber.NewError(fiber.StatusInternalServerError, "Kasa oluşturulamadı")
		}

		writeAudit(c, db, log, audit.LogOptions{
			CashRegisterID: &reg.ID,
			EntityType:     "cash_register",
			EntityID:       reg.ID,
			Action:         models.AuditActionCreate,
			Description:    "Kasa oluşturuldu: " + reg.Name,
			After:          toRegisterResponse(&reg),
		})

		return api.Created(c, toRegisterResponse(&reg), "Kasa oluşturuldu")
	}
}

func ListCashRegistersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Order("id asc")
		if c.Query("active") == "true" {
			q = q.Where("is_active = ?", true)
		}

		var regs []models.CashRegister
		if err := q.Find(&regs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kasalar listelenemedi")
		}

		res := make([]CashRegisterResponse, 0, len(regs))
		for i := range regs {
			res = append(res, toRegisterResponse(&regs[i]))
		}
		return api.OK(c, res, "")
	}
}

func GetCashRegisterHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var reg models.CashRegister
		if err := db.First(&reg, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kasa bulunamadı")
		}
		return api.OK(c, toRegisterResponse(&reg), "")
	}
}

// UpdateCashRegisterHandler also covers deactivation; registers are never hard-deleted
// because sessions reference them.
func UpdateCashRegisterHandler(db *gorm.DB, log *logrus.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := api.ParamID(c, "id")
		if err != nil {
			return err
		}

		var reg models.CashRegister
		if err := db.First(&reg, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kasa bulunamadı")
		}
		before := toRegisterResponse(&reg)

		var body UpdateCashRegisterRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Kasa adı boş olamaz")
			}
			reg.Name = name
		}
		if body.Location != nil {
			reg.Location = strings.TrimSpace(*body.Location)
		}
		if body.IsActive != nil {
			reg.IsActive = *body.IsActive
		}

		if err := db.Save(&reg).Error; err != nil {
			if gormstore.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir kasa zaten var")
			}
			log.WithError(err).Error("Kasa güncellenemedi")
			return fiber.NewError(fiber.StatusInternalServerError, "Kasa güncellenemedi")
		}

		writeAudit(c, db, log, audit.LogOptions{
			CashRegisterID: &reg.ID,
			EntityType:     "cash_register",
			EntityID:       reg.ID,
			Action:         models.AuditActionUpdate,
			Description:    "Kasa güncellendi: " + reg.Name,
			Before:         before,
			After:          toRegisterResponse(&reg),
		})

		return api.OK(c, toRegisterResponse(&reg), "Kasa güncellendi")
	}
}
