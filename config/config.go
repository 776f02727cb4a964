package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system settings
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig http listener settings
type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	BodyLimit string `yaml:"body_limit" json:"body_limit"`
}

// DBConfig database settings, Type is postgres or sqlite
type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"-"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// LogConfig logger settings
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// I18nConfig lists the locales every translatable field is stored in.
// Default must be one of Locales.
type I18nConfig struct {
	Default string   `yaml:"default" json:"default"`
	Locales []string `yaml:"locales" json:"locales"`
}

// MediaConfig uploaded file storage
type MediaConfig struct {
	Root      string `yaml:"root" json:"root"`
	URLPrefix string `yaml:"url_prefix" json:"url_prefix"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
}

type TelegramConfig struct {
	ApiBase string   `yaml:"api_base" json:"api_base"`
	Token   string   `yaml:"token" json:"-"`
	ChatIds []string `yaml:"chat_ids" json:"chat_ids"`
}

type MailConfig struct {
	Host   string   `yaml:"host" json:"host"`
	Port   int      `yaml:"port" json:"port"`
	User   string   `yaml:"user" json:"user"`
	Passwd string   `yaml:"passwd" json:"-"`
	From   string   `yaml:"from" json:"from"`
	To     []string `yaml:"to" json:"to"`
}

// NotifyConfig staff notification settings
type NotifyConfig struct {
	Workers  int            `yaml:"workers" json:"workers"`
	Timeout  time.Duration  `yaml:"timeout" json:"timeout"`
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`
	Mail     MailConfig     `yaml:"mail" json:"mail"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system" json:"system"`
	Web      WebConfig    `yaml:"web" json:"web"`
	Database DBConfig     `yaml:"database" json:"database"`
	Logger   LogConfig    `yaml:"logger" json:"logger"`
	I18n     I18nConfig   `yaml:"i18n" json:"i18n"`
	Media    MediaConfig  `yaml:"media" json:"media"`
	Notify   NotifyConfig `yaml:"notify" json:"notify"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

// GetMediaRoot returns the absolute media directory; relative roots live under the workdir.
func (c *AppConfig) GetMediaRoot() string {
	if path.IsAbs(c.Media.Root) {
		return c.Media.Root
	}
	return path.Join(c.System.Workdir, c.Media.Root)
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
	_ = os.MkdirAll(c.GetMediaRoot(), 0o755)
}

// Validate reports configuration combinations the application cannot run with.
func (c *AppConfig) Validate() error {
	switch strings.ToLower(c.Database.Type) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	if len(c.I18n.Locales) == 0 {
		return fmt.Errorf("i18n.locales must not be empty")
	}
	for _, l := range c.I18n.Locales {
		if l == c.I18n.Default {
			return nil
		}
	}
	return fmt.Errorf("i18n.default %q is not listed in i18n.locales", c.I18n.Default)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Storefront",
		Location: "Asia/Tashkent",
		Workdir:  "/var/storefront",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      8000,
		BodyLimit: "12M",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "storefront",
		User:     "postgres",
		Passwd:   "postgres",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/storefront/logs/storefront.log",
	},
	I18n: I18nConfig{
		Default: "ru",
		Locales: []string{"ru", "uz"},
	},
	Media: MediaConfig{
		Root:      "media",
		URLPrefix: "/media",
		MaxSizeMB: 10,
	},
	Notify: NotifyConfig{
		Workers: 8,
		Timeout: 10 * time.Second,
		Telegram: TelegramConfig{
			ApiBase: "https://api.telegram.org",
		},
		Mail: MailConfig{
			Port: 587,
		},
	},
}

// LoadConfig reads cfile (when present) over the defaults, then applies
// STOREFRONT_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	cfg.I18n.Locales = append([]string(nil), DefaultAppConfig.I18n.Locales...)

	if cfile == "" {
		cfile = "storefront.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			panic(fmt.Errorf("parse config %s: %w", cfile, err))
		}
	}

	applyEnv(cfg)
	cfg.initDirs()
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("STOREFRONT_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("STOREFRONT_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("STOREFRONT_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("STOREFRONT_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("STOREFRONT_WEB_PORT", &cfg.Web.Port)

	setEnvValue("STOREFRONT_DB_TYPE", &cfg.Database.Type)
	setEnvValue("STOREFRONT_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("STOREFRONT_DB_PORT", &cfg.Database.Port)
	setEnvValue("STOREFRONT_DB_NAME", &cfg.Database.Name)
	setEnvValue("STOREFRONT_DB_USER", &cfg.Database.User)
	setEnvValue("STOREFRONT_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("STOREFRONT_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("STOREFRONT_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("STOREFRONT_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvValue("STOREFRONT_MEDIA_ROOT", &cfg.Media.Root)

	setEnvIntValue("STOREFRONT_NOTIFY_WORKERS", &cfg.Notify.Workers)
	setEnvValue("STOREFRONT_TELEGRAM_API_BASE", &cfg.Notify.Telegram.ApiBase)
	setEnvValue("STOREFRONT_TELEGRAM_TOKEN", &cfg.Notify.Telegram.Token)
	setEnvListValue("STOREFRONT_TELEGRAM_CHAT_IDS", &cfg.Notify.Telegram.ChatIds)
	setEnvValue("STOREFRONT_MAIL_HOST", &cfg.Notify.Mail.Host)
	setEnvIntValue("STOREFRONT_MAIL_PORT", &cfg.Notify.Mail.Port)
	setEnvValue("STOREFRONT_MAIL_USER", &cfg.Notify.Mail.User)
	setEnvValue("STOREFRONT_MAIL_PWD", &cfg.Notify.Mail.Passwd)
	setEnvValue("STOREFRONT_MAIL_FROM", &cfg.Notify.Mail.From)
	setEnvListValue("STOREFRONT_MAIL_TO", &cfg.Notify.Mail.To)

	if v := os.Getenv("STOREFRONT_NOTIFY_TIMEOUT"); v != "" {
		if d, err := cast.ToDurationE(v); err == nil {
			cfg.Notify.Timeout = d
		}
	}
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if b, err := cast.ToBoolE(evalue); err == nil {
		*val = b
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if p, err := cast.ToIntE(evalue); err == nil {
		*val = p
	}
}

// setEnvListValue splits a comma separated variable, dropping blanks.
func setEnvListValue(name string, val *[]string) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	var items []string
	for _, s := range strings.Split(evalue, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	*val = items
}
