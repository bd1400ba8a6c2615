package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	CtxRequestIDKey = "request_id"
	HeaderRequestID = "X-Request-ID"
)

// New builds the JSON logger used across the service.
func New(serviceName, level string) *logrus.Entry {
	return NewWithOutput(serviceName, level, os.Stdout)
}

func NewWithOutput(serviceName, level string, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log.WithField("service", serviceName)
}

// Discard is handy in tests.
func Discard() *logrus.Entry {
	return NewWithOutput("test", "error", io.Discard)
}

// RequestLogger assigns a request id and logs every request once it finishes.
func RequestLogger(log *logrus.Entry, userIDKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(CtxRequestIDKey, reqID)
		c.Set(HeaderRequestID, reqID)

		// Hata burada yanıta çevrilir ki loglanan status gerçek status olsun
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if uid := c.Locals(userIDKey); uid != nil {
			fields["user_id"] = uid
		}

		entry := log.WithFields(fields)
		if err != nil {
			entry.WithError(err).Info("http request failed")
		} else {
			entry.Debug("http request")
		}
		return nil
	}
}

// FromCtx returns a logger tagged with the request id of c, if any.
func FromCtx(log *logrus.Entry, c *fiber.Ctx) *logrus.Entry {
	if id, ok := c.Locals(CtxRequestIDKey).(string); ok && id != "" {
		return log.WithField("request_id", id)
	}
	return log
}
