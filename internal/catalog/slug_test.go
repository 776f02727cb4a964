package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarlab/storefront/internal/dbtest"
	"github.com/bazaarlab/storefront/internal/domain"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Foo", "foo"},
		{"  Winter Jacket  ", "winter-jacket"},
		{"Куртка зимняя", "kurtka-zimnyaya"},
		{"O‘zbek to'n", "ozbek-ton"},
		{"Café -- crème!!", "cafe-creme"},
		{"***", ""},
		{"Nike Air 270", "nike-air-270"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestUniqueSlug(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	want := []string{"foo", "foo-1", "foo-2"}
	for i, w := range want {
		slug, err := UniqueSlug(ctx, db, "Foo", 0)
		require.NoError(t, err)
		assert.Equal(t, w, slug)
		require.NoError(t, db.Create(&domain.Product{
			Title: domain.Localized{"ru": "Foo"}, Price: int64(i), CategoryID: 1, SubCategoryID: 1,
			Slug: slug, Gender: domain.GenderUnisex,
		}).Error)
	}

	// the product being renamed keeps its own slug
	var first domain.Product
	require.NoError(t, db.Where("slug = ?", "foo").First(&first).Error)
	slug, err := UniqueSlug(ctx, db, "Foo", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "foo", slug)

	slug, err = UniqueSlug(ctx, db, "!!!", 0)
	require.NoError(t, err)
	assert.Equal(t, "product", slug)

	slug, err = UniqueSlug(ctx, db, "2024", 0)
	require.NoError(t, err)
	assert.Equal(t, "p-2024", slug)
	slug, err = UniqueSlug(ctx, db, "Air 90", 0)
	require.NoError(t, err)
	assert.Equal(t, "air-90", slug)
}
