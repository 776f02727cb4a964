package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarlab/storefront/config"
	"github.com/bazaarlab/storefront/internal/dbtest"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/media"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func testConfig(t *testing.T) *config.AppConfig {
	cfg := new(config.AppConfig)
	*cfg = *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	cfg.Database = config.DBConfig{Type: "sqlite", Name: "shop.db"}
	cfg.Logger = config.LogConfig{Mode: "development"}
	cfg.Notify.Telegram = config.TelegramConfig{}
	cfg.Notify.Mail = config.MailConfig{}
	return cfg
}

func TestParseSeed(t *testing.T) {
	doc, err := parseSeed(demoCatalog)
	require.NoError(t, err)
	assert.Len(t, doc.Brands, 3)
	assert.Len(t, doc.Stocks, 2)
	require.Len(t, doc.Categories, 2)
	assert.Len(t, doc.Categories[0].SubCategories, 2)
	assert.Equal(t, "Kiyim", doc.Categories[0].Title["uz"])
	require.NotNil(t, doc.Contact)
	assert.Equal(t, "+998901234567", doc.Contact.Phone1)

	_, err = parseSeed([]byte("brands: []\nbrandz: []\n"))
	assert.Error(t, err)
}

func TestSeedCatalog(t *testing.T) {
	a := NewApplication(testConfig(t))
	a.OverrideDB(dbtest.Open(t))
	ctx := context.Background()

	res, err := a.SeedCatalog(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, 3, res.SubCategories)
	assert.Equal(t, 5, res.Products)
	assert.Equal(t, 2, res.Services)

	var jacket domain.Product
	require.NoError(t, a.DB().Where("slug = ?", "kurtka-zimnyaya").First(&jacket).Error)
	assert.Equal(t, int64(800000), jacket.UnitPrice())
	assert.NotNil(t, jacket.BrandID)
	assert.NotNil(t, jacket.StockID)
	assert.True(t, jacket.IsAvailable)

	var specs int64
	a.DB().Model(&domain.ShortDescription{}).Where("product_id = ?", jacket.ID).Count(&specs)
	assert.Equal(t, int64(2), specs)

	var keds domain.Product
	require.NoError(t, a.DB().Where("slug = ?", "kedy-klassicheskie").First(&keds).Error)
	assert.False(t, keds.IsAvailable)
	assert.Equal(t, domain.GenderUnisex, keds.Gender)

	var contacts int64
	a.DB().Model(&domain.Contact{}).Count(&contacts)
	assert.Equal(t, int64(1), contacts)

	again, err := a.SeedCatalog(ctx)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	var products int64
	a.DB().Model(&domain.Product{}).Count(&products)
	assert.Equal(t, int64(5), products)
}

func TestSqlitePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data", "storefront.db"), sqlitePath("", "/data"))
	assert.Equal(t, filepath.Join("/data", "shop.db"), sqlitePath("shop.db", "/data"))
	assert.Equal(t, "/tmp/shop.db", sqlitePath("/tmp/shop.db", "/data"))
	assert.Equal(t, ":memory:", sqlitePath(":memory:", "/data"))
}

func TestGetDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := getDatabase(config.DBConfig{Type: "sqlite", Name: "shop.db"}, dir)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, sqlDB.Close())
	assert.FileExists(t, filepath.Join(dir, "shop.db"))

	_, err = getDatabase(config.DBConfig{Type: "mysql"}, dir)
	assert.Error(t, err)
}

func TestInitAndRelease(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.GetDataDir(), 0o755))

	a := NewApplication(cfg)
	require.NoError(t, a.Init())
	assert.True(t, a.DB().Migrator().HasTable(&domain.Product{}))
	assert.NotNil(t, a.Checkout())
	assert.NotNil(t, a.Media())
	assert.Equal(t, 0, a.Dispatcher().RecipientCount())
	assert.Equal(t, "ru", a.I18n().Default())

	a.StartBackgroundJobs()
	assert.Len(t, a.Scheduler().Entries(), 2)
	a.Release()
}

func TestSweepMedia(t *testing.T) {
	a := NewApplication(testConfig(t))
	a.OverrideDB(dbtest.Open(t))
	store, err := media.NewStore(t.TempDir(), "/media", 1, 1)
	require.NoError(t, err)

	kept, err := store.Save(bytes.NewReader(pngHeader), "products")
	require.NoError(t, err)
	orphan, err := store.Save(bytes.NewReader(pngHeader), "banners")
	require.NoError(t, err)
	require.NoError(t, a.DB().Create(&domain.Image{Path: kept}).Error)

	old := time.Now().Add(-2 * MediaSweepGrace)
	for _, rel := range []string{kept, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(store.Root(), filepath.FromSlash(rel)), old, old))
	}

	removed, err := sweepMedia(context.Background(), a, store)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.FileExists(t, filepath.Join(store.Root(), filepath.FromSlash(kept)))
	assert.NoFileExists(t, filepath.Join(store.Root(), filepath.FromSlash(orphan)))
}
