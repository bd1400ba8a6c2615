package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("kasa", "warn", &buf)

	log.Info("görünmemeli")
	log.WithField("session_id", 7).Warn("kasa farkı")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kasa", lines[0]["service"])
	assert.Equal(t, "warning", lines[0]["level"])
	assert.Equal(t, "kasa farkı", lines[0]["message"])
	assert.Equal(t, float64(7), lines[0]["session_id"])
	assert.Contains(t, lines[0], "timestamp")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("kasa", "debug", &buf)

	app := fiber.New()
	app.Use(RequestLogger(log, "user_id"))
	app.Get("/ok", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(5))
		return c.SendString("ok")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "yok")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(HeaderRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, float64(200), lines[0]["status"])
	assert.Equal(t, float64(5), lines[0]["user_id"])

	assert.Equal(t, "/missing", lines[1]["path"])
	assert.Equal(t, float64(404), lines[1]["status"])
	assert.Equal(t, "yok", lines[1]["error"])
}
