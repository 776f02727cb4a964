package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/internal/domain"
)

const maxSlugLen = 200

// cyrillic to latin, close to what shoppers type into a search box
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	// uzbek cyrillic
	'ў': "o", 'қ': "q", 'ғ': "g", 'ҳ': "h",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lowercases s, transliterates cyrillic, drops diacritics and joins
// the remaining alphanumeric runs with single dashes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if t, ok := translit[r]; ok {
			b.WriteString(t)
			continue
		}
		b.WriteRune(r)
	}
	plain, _, err := transform.String(stripMarks, b.String())
	if err != nil {
		plain = b.String()
	}

	var out strings.Builder
	dash := false
	for _, r := range plain {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out.WriteRune(r)
			dash = false
		case r == '\'' || r == '‘' || r == '’' || r == 'ʻ' || r == 'ʼ':
			// o‘zbek -> ozbek
		default:
			if !dash && out.Len() > 0 {
				out.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.Trim(out.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}

// UniqueSlug derives a slug from title that no other product uses, appending
// -1, -2, ... on collision. excludeID skips the product being updated.
// All-digit slugs get a "p-" prefix so they never read as a product id.
func UniqueSlug(ctx context.Context, db *gorm.DB, title string, excludeID int64) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "product"
	} else if isDigits(base) {
		base = "p-" + base
	}
	candidate := base
	for n := 1; ; n++ {
		var count int64
		err := db.WithContext(ctx).Model(&domain.Product{}).
			Where("slug = ? AND id <> ?", candidate, excludeID).
			Count(&count).Error
		if err != nil {
			return "", errors.Wrap(err, "check slug")
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
