package domain

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Localized holds one text per locale code, e.g. {"ru": "Куртка", "uz": "Kurtka"}.
// It is stored as a single JSON column.
type Localized map[string]string

// Get returns the text for locale, then fallback, then the first non-empty
// value in locale code order.
func (l Localized) Get(locale, fallback string) string {
	if v := strings.TrimSpace(l[locale]); v != "" {
		return v
	}
	if v := strings.TrimSpace(l[fallback]); v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(l[k]); v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether locale carries a non-blank value.
func (l Localized) Has(locale string) bool {
	return strings.TrimSpace(l[locale]) != ""
}

// Trimmed returns a copy without blank entries and with surrounding spaces removed.
func (l Localized) Trimmed() Localized {
	out := make(Localized, len(l))
	for k, v := range l {
		if v = strings.TrimSpace(v); v != "" {
			out[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
	return out
}

func (l Localized) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Localized) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = Localized{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("localized: unsupported scan type %T", src)
	}
	m := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("localized: %w", err)
		}
	}
	*l = m
	return nil
}

// GormDBDataType stores the map as jsonb on postgres and text elsewhere.
func (Localized) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}
