package api

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"restoran-kasa/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ParseBody decodes the JSON body into dst and runs struct validation.
func ParseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Geçersiz istek gövdesi")
	}
	return ValidateStruct(dst)
}

func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("Geçersiz istek: %v", err)
	}

	out := apperr.Validation("Geçersiz istek")
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
		out.WithField(field, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "zorunlu"
	case "min":
		return fmt.Sprintf("en az %s olmalı", fe.Param())
	case "max":
		return fmt.Sprintf("en fazla %s olmalı", fe.Param())
	case "gt":
		return fmt.Sprintf("%s'dan büyük olmalı", fe.Param())
	case "gte":
		return fmt.Sprintf("en az %s olmalı", fe.Param())
	case "oneof":
		return fmt.Sprintf("şunlardan biri olmalı: %s", fe.Param())
	case "email":
		return "geçerli bir email olmalı"
	}
	return fmt.Sprintf("'%s' kontrolünden geçmedi", fe.Tag())
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Geçersiz %s", name).WithField(name, "pozitif bir sayı olmalı")
	}
	return uint(id), nil
}

// QueryUint returns nil when the query parameter is absent.
func QueryUint(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, apperr.Validation("%s geçersiz", name).WithField(name, "pozitif bir sayı olmalı")
	}
	u := uint(v)
	return &u, nil
}

// QueryDate parses a YYYY-MM-DD query parameter in loc.
func QueryDate(c *fiber.Ctx, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, apperr.Validation("%s tarihi geçersiz, 'YYYY-MM-DD' olmalı", name).WithField(name, "YYYY-MM-DD")
	}
	return &d, nil
}

func QueryInt(c *fiber.Ctx, name string, def, max int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Validation("%s geçersiz", name).WithField(name, "negatif olmayan bir sayı olmalı")
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}

// ParseOptionalBody is ParseBody for endpoints whose body may be empty.
func ParseOptionalBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return ValidateStruct(dst)
	}
	return ParseBody(c, dst)
}
