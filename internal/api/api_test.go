package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/apperr"
	"restoran-kasa/internal/logger"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", apperr.Validation("tutar").WithField("amount", "zorunlu"), http.StatusBadRequest, "validation"},
		{"not found", apperr.NotFound("oturum yok"), http.StatusNotFound, "not_found"},
		{"conflict", apperr.Conflict("aktif oturum var"), http.StatusConflict, "conflict"},
		{"business", apperr.Business("durum uygun değil"), http.StatusConflict, "business"},
		{"fiber forbidden", fiber.NewError(fiber.StatusForbidden, "yetki yok"), http.StatusForbidden, "forbidden"},
		{"fiber unauthorized", fiber.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"plain", errors.New("db down"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Discard())})
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, body.Kind)
			assert.False(t, body.Success)
		})
	}
}

func TestErrorHandlerHidesInternalMessage(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Discard())})
	app.Get("/", func(c *fiber.Ctx) error { return errors.New("pq: password authentication failed") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Beklenmeyen sunucu hatası", body.Message)
}

type sampleLine struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type sampleRequest struct {
	RegisterID uint         `json:"cash_register_id" validate:"required"`
	Method     string       `json:"payment_method" validate:"required,oneof=CASH PIX"`
	Lines      []sampleLine `json:"counts" validate:"required,min=1,dive"`
}

func TestValidateStructFieldNames(t *testing.T) {
	err := ValidateStruct(&sampleRequest{
		Method: "CHEQUE",
		Lines:  []sampleLine{{Quantity: 1}, {Quantity: -2}},
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, "zorunlu", appErr.Fields["cash_register_id"])
	assert.Contains(t, appErr.Fields["payment_method"], "CASH PIX")
	assert.Contains(t, appErr.Fields, "counts[1].quantity")

	assert.NoError(t, ValidateStruct(&sampleRequest{RegisterID: 1, Method: "PIX", Lines: []sampleLine{{}}}))
}

func TestQueryHelpers(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Discard())})
	app.Get("/:id", func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		day, err := QueryDate(c, "date", loc)
		if err != nil {
			return err
		}
		limit, err := QueryInt(c, "limit", 50, 200)
		if err != nil {
			return err
		}
		out := fiber.Map{"id": id, "limit": limit}
		if day != nil {
			out["date"] = day.Format(time.RFC3339)
		}
		return c.JSON(out)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/7?date=2025-03-10&limit=500", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, float64(200), body["limit"])
	assert.Equal(t, "2025-03-10T00:00:00-03:00", body["date"])

	for _, path := range []string{"/0", "/abc", "/1?date=2025-13-01", "/1?limit=x"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}
