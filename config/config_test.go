package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_SYSTEM_WORKER_DIR", t.TempDir())
	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))

	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "ru", cfg.I18n.Default)
	assert.Equal(t, []string{"ru", "uz"}, cfg.I18n.Locales)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.NoError(t, cfg.Validate())
	assert.DirExists(t, cfg.GetMediaRoot())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfile := filepath.Join(dir, "storefront.yml")
	content := `
system:
  workdir: ` + dir + `
database:
  type: sqlite
  name: shop.db
i18n:
  default: uz
  locales: [uz, ru, en]
notify:
  timeout: 3s
  telegram:
    token: from-file
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o600))

	t.Setenv("STOREFRONT_TELEGRAM_TOKEN", "from-env")
	t.Setenv("STOREFRONT_TELEGRAM_CHAT_IDS", "111, 222,,333")
	t.Setenv("STOREFRONT_WEB_PORT", "9090")
	t.Setenv("STOREFRONT_DB_DEBUG", "true")

	cfg := LoadConfig(cfile)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Database.Debug)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "from-env", cfg.Notify.Telegram.Token)
	assert.Equal(t, []string{"111", "222", "333"}, cfg.Notify.Telegram.ChatIds)
	assert.Equal(t, 3*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, []string{"uz", "ru", "en"}, cfg.I18n.Locales)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := *DefaultAppConfig
	cfg.Database.Type = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = *DefaultAppConfig
	cfg.I18n = I18nConfig{Default: "en", Locales: []string{"ru", "uz"}}
	assert.Error(t, cfg.Validate())

	cfg.I18n.Locales = nil
	assert.Error(t, cfg.Validate())
}
