package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bazaarlab/storefront/internal/domain"
)

func TestResolve(t *testing.T) {
	r := NewResolver("ru", []string{"uz", "ru"})
	assert.Equal(t, []string{"ru", "uz"}, r.Locales())

	tests := []struct {
		lang, accept, want string
	}{
		{"", "", "ru"},
		{"uz", "", "uz"},
		{"UZ", "ru", "uz"},
		{"", "uz-UZ,uz;q=0.9", "uz"},
		{"", "en-US,en;q=0.9", "ru"},
		{"", "de, uz;q=0.5", "uz"},
		{"fr", "", "ru"},
		{"", "%%%", "ru"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(tt.lang, tt.accept), "lang=%q accept=%q", tt.lang, tt.accept)
	}
}

func TestCheck(t *testing.T) {
	r := NewResolver("ru", []string{"ru", "uz"})
	assert.NoError(t, r.Check(domain.Localized{"ru": "Куртка"}))
	assert.Error(t, r.Check(domain.Localized{"uz": "Kurtka"}))
	assert.Error(t, r.Check(domain.Localized{"ru": "Куртка", "en": "Jacket"}))

	assert.NoError(t, r.CheckOptional(nil))
	assert.NoError(t, r.CheckOptional(domain.Localized{"uz": "x"}))
	assert.Error(t, r.CheckOptional(domain.Localized{"de": "x"}))
}
