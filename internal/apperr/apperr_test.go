package apperr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("tutar %d", 10), KindValidation},
		{"wrapped conflict", fmt.Errorf("open: %w", Conflict("aktif oturum var")), KindConflict},
		{"not found", NotFound("yok"), KindNotFound},
		{"business", Business("durum"), KindBusiness},
		{"plain", fmt.Errorf("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWithField(t *testing.T) {
	err := Validation("geçersiz").WithField("amount", "zorunlu").WithField("notes", "gerekli")
	assert.Equal(t, "geçersiz", err.Error())
	assert.Equal(t, map[string]string{"amount": "zorunlu", "notes": "gerekli"}, err.Fields)
	assert.True(t, Is(err, KindValidation))
	assert.False(t, Is(nil, KindValidation))
}
