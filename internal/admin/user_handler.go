package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restoran-kasa/internal/api"
	"restoran-kasa/internal/audit"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store/gormstore"
)

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin supervisor treasurer operator"`
}

type UserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt string          `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// PERSONEL
// ----------------------------------------

func CreateUserHandler(db *gorm.DB, log *logrus.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := api.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", body.Email).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı kontrol edilemedi")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu email zaten kayıtlı")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         body.Role,
			IsActive:     true,
		}
		if err := db.Create(&user).Error; err != nil {
			// Count ile Create arasında aynı email eklenmiş olabilir
			if gormstore.IsUniqueViolation(err) {
				return fiber.NewError(fiber.StatusConflict, "Bu email zaten kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		writeAudit(c, db, log, audit.LogOptions{
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "Personel oluşturuldu: " + user.Email + " (" + string(user.Role) + ")",
			After:       toUserResponse(&user),
		})

		return api.Created(c, toUserResponse(&user), "Kullanıcı oluşturuldu")
	}
}

func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.WithContext(c.UserContext()).Order("id asc")
		if role := models.UserRole(c.Query("role")); role != "" {
			if !role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol")
			}
			q = q.Where("role = ?", role)
		}

		var users []models.User
		if err := q.Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]UserResponse, 0, len(users))
		for i := range users {
			res = append(res, toUserResponse(&users[i]))
		}
		return api.OK(c, res, "")
	}
}
