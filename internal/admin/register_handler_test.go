package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"restoran-kasa/internal/api"
	"restoran-kasa/internal/database"
	"restoran-kasa/internal/logger"
)

// newMockDB opens gorm over sqlmock with the same config database.Init uses.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), database.GormConfig(logger.Discard()))
	require.NoError(t, err)
	return db, mock
}

func newRegisterApp(db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(logger.Discard())})
	app.Post("/cash-registers", CreateCashRegisterHandler(db, logger.Discard()))
	app.Put("/cash-registers/:id", UpdateCashRegisterHandler(db, logger.Discard()))
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

var duplicateName = &pgconn.PgError{
	Code:           "23505",
	ConstraintName: "uni_cash_registers_name",
	Message:        `duplicate key value violates unique constraint "uni_cash_registers_name"`,
}

func TestCreateCashRegister_DuplicateName(t *testing.T) {
	db, mock := newMockDB(t)
	app := newRegisterApp(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "cash_registers"`).WillReturnError(duplicateName)
	mock.ExpectRollback()

	status, body := send(t, app, http.MethodPost, "/cash-registers", map[string]any{"name": "Kasa 1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", body["kind"])
	assert.Equal(t, "Bu isimde bir kasa zaten var", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCashRegister_DatabaseDown(t *testing.T) {
	db, mock := newMockDB(t)
	app := newRegisterApp(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "cash_registers"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	status, _ := send(t, app, http.MethodPost, "/cash-registers", map[string]any{"name": "Kasa 1"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCashRegister_OK(t *testing.T) {
	db, mock := newMockDB(t)
	app := newRegisterApp(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "cash_registers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	status, body := send(t, app, http.MethodPost, "/cash-registers", map[string]any{"name": "  Kasa 3 ", "location": "Bar"})
	require.Equal(t, http.StatusCreated, status, body)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(3), data["id"])
	assert.Equal(t, "Kasa 3", data["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCashRegister_DuplicateName(t *testing.T) {
	db, mock := newMockDB(t)
	app := newRegisterApp(db)

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "cash_registers" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "location", "is_active", "created_at", "updated_at"}).
			AddRow(2, "Kasa 2", "Teras", true, created, created))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "cash_registers" SET`).WillReturnError(duplicateName)
	mock.ExpectRollback()

	status, body := send(t, app, http.MethodPut, "/cash-registers/2", map[string]any{"name": "Kasa 1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Bu isimde bir kasa zaten var", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
