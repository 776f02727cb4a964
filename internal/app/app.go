package app

import (
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/bazaarlab/storefront/config"
	"github.com/bazaarlab/storefront/internal/checkout"
	"github.com/bazaarlab/storefront/internal/domain"
	"github.com/bazaarlab/storefront/internal/i18n"
	"github.com/bazaarlab/storefront/internal/media"
	"github.com/bazaarlab/storefront/internal/notify"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

type Application struct {
	appConfig  *config.AppConfig
	gormDB     *gorm.DB
	sched      *cron.Cron
	resolver   *i18n.Resolver
	mediaStore *media.Store
	dispatcher *notify.Dispatcher
	notifier   *notify.AsyncNotifier
	checkout   *checkout.Service
}

var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

func (a *Application) I18n() *i18n.Resolver {
	return a.resolver
}

func (a *Application) Media() *media.Store {
	return a.mediaStore
}

func (a *Application) Dispatcher() *notify.Dispatcher {
	return a.dispatcher
}

func (a *Application) Checkout() *checkout.Service {
	return a.checkout
}

// Init sets up logging, metrics and the database, migrates the schema and
// builds the services shared by the HTTP handlers.
func (a *Application) Init() error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	if err := initLogger(cfg.Logger); err != nil {
		return err
	}

	if err := metrics.InitMetrics(cfg.System.Workdir); err != nil {
		zap.S().Warn("Failed to initialize metrics:", err)
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	a.gormDB, err = getDatabase(cfg.Database, cfg.GetDataDir())
	if err != nil {
		return err
	}
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		return err
	}

	a.resolver = i18n.NewResolver(cfg.I18n.Default, cfg.I18n.Locales)
	a.mediaStore, err = media.NewStore(cfg.GetMediaRoot(), cfg.Media.URLPrefix, cfg.Media.MaxSizeMB, 1)
	if err != nil {
		return errors.Wrap(err, "open media store")
	}
	a.dispatcher = notify.NewDispatcherFromConfig(cfg.Notify)
	a.notifier, err = notify.NewAsyncNotifier(a.dispatcher, cfg.Notify.Workers)
	if err != nil {
		return errors.Wrap(err, "start notification pool")
	}
	a.checkout = checkout.NewService(a.gormDB, a.notifier, cfg.I18n.Default)
	return nil
}

func initLogger(cfg config.LogConfig) error {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.FileEnable {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(rotated),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			return errors.Wrap(err, "build logger")
		}
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// MigrateDB creates or updates every storefront table. track echoes the DDL.
func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			err = errors.Errorf("migrate panic: %v", r)
			zap.S().Error(err)
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	if err := db.Migrator().AutoMigrate(domain.Tables...); err != nil {
		return errors.Wrap(err, "migrate database")
	}
	return nil
}

// DropAll removes every storefront table.
func (a *Application) DropAll() error {
	return a.gormDB.Migrator().DropTable(domain.Tables...)
}

func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

// StartBackgroundJobs starts the monitor and cleanup jobs.
func (a *Application) StartBackgroundJobs() {
	a.initJob()
}

// Release waits for queued notifications, stops the jobs and flushes logs.
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.notifier != nil {
		a.notifier.Release()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = metrics.Close()
	_ = zap.L().Sync()
}
