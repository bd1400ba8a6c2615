package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-kasa/internal/models"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", JWTMiddleware(testSecret), func(c *fiber.Ctx) error {
		p, err := Current(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": p.UserID, "name": p.Name, "role": p.Role})
	})
	app.Get("/treasury", JWTMiddleware(testSecret), RequireRole(models.RoleTreasurer), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func bearer(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, u)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestJWTMiddleware(t *testing.T) {
	app := newApp()
	op := &models.User{ID: 4, Name: "Mehmet", Email: "m@x.com", Role: models.RoleOperator}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad scheme", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", bearer(t, op), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestWrongSecretRejected(t *testing.T) {
	app := newApp()
	tok, err := GenerateToken("another-secret-that-is-32-chars-long!!", &models.User{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest(http.MethodGet, "/treasury", nil)
	req.Header.Set("Authorization", bearer(t, &models.User{ID: 2, Role: models.RoleOperator}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/treasury", nil)
	req.Header.Set("Authorization", bearer(t, &models.User{ID: 3, Role: models.RoleTreasurer}))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
