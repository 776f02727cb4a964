package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/bazaarlab/storefront/internal/domain"
)

// Resolver picks the response locale for a request and checks localized
// payloads against the configured locale set.
type Resolver struct {
	def     string
	locales []string
	matcher language.Matcher
}

// NewResolver builds a resolver; def is moved to the front of locales so the
// matcher falls back to it.
func NewResolver(def string, locales []string) *Resolver {
	def = strings.ToLower(strings.TrimSpace(def))
	ordered := []string{def}
	for _, l := range locales {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && l != def {
			ordered = append(ordered, l)
		}
	}
	tags := make([]language.Tag, 0, len(ordered))
	for _, l := range ordered {
		tags = append(tags, language.Make(l))
	}
	return &Resolver{def: def, locales: ordered, matcher: language.NewMatcher(tags)}
}

func (r *Resolver) Default() string {
	return r.def
}

// Locales returns the supported locales, default first.
func (r *Resolver) Locales() []string {
	return append([]string(nil), r.locales...)
}

func (r *Resolver) Supported(locale string) bool {
	for _, l := range r.locales {
		if l == locale {
			return true
		}
	}
	return false
}

// Resolve prefers an explicit ?lang= value, then the Accept-Language header.
func (r *Resolver) Resolve(lang, acceptLanguage string) string {
	if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
		if r.Supported(lang) {
			return lang
		}
		acceptLanguage = lang
	}
	if acceptLanguage == "" {
		return r.def
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return r.def
	}
	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(r.locales) {
		return r.def
	}
	return r.locales[idx]
}

// Check validates a localized write value: the default locale is required and
// every key must be a supported locale.
func (r *Resolver) Check(v domain.Localized) error {
	for k := range v {
		if !r.Supported(k) {
			return fmt.Errorf("unsupported locale %q", k)
		}
	}
	if !v.Has(r.def) {
		return fmt.Errorf("a %q translation is required", r.def)
	}
	return nil
}

// CheckOptional is Check for fields that may be left empty.
func (r *Resolver) CheckOptional(v domain.Localized) error {
	if len(v) == 0 {
		return nil
	}
	for k := range v {
		if !r.Supported(k) {
			return fmt.Errorf("unsupported locale %q", k)
		}
	}
	return nil
}
