package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/logger"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict, apperr.KindBusiness:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is installed as fiber.Config.ErrorHandler.
func ErrorHandler(log *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return c.Status(StatusFor(appErr.Kind)).JSON(ErrorBody{
				Kind:    string(appErr.Kind),
				Message: appErr.Message,
				Fields:  appErr.Fields,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(ErrorBody{
				Kind:    kindForStatus(fe.Code),
				Message: fe.Message,
			})
		}

		logger.FromCtx(log, c).WithError(err).Error("Beklenmeyen hata")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorBody{
			Kind:    string(apperr.KindInternal),
			Message: "Beklenmeyen sunucu hatası",
		})
	}
}

func kindForStatus(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return string(apperr.KindValidation)
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	case fiber.StatusConflict:
		return string(apperr.KindConflict)
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	}
	if code >= 500 {
		return string(apperr.KindInternal)
	}
	return "error"
}
