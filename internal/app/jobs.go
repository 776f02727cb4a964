package app

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/internal/media"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

// MediaSweepGrace keeps unreferenced uploads around long enough for the
// admin form that uploaded them to be saved.
const MediaSweepGrace = 24 * time.Hour

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", a.SchedMediaSweepTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(cpuuse) > 0 {
		metrics.SetGauge(metrics.SystemCpuUse, int64(cpuuse[0]*100)) // percentage * 100
	}

	meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge(metrics.SystemMemUse, int64(meminfo.Used/1024/1024)) //nolint:gosec // G115: MB fits in int64
	}
}

// SchedProcessMonitorTask storefront process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	metrics.SetGauge(metrics.StorefrontGoroutine, int64(runtime.NumGoroutine()))

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: PID is always within int32 range
	if err != nil {
		return
	}
	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge(metrics.StorefrontCpuUse, int64(cpuuse*100))
	}
	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge(metrics.StorefrontMemUse, int64(meminfo.RSS/1024/1024)) //nolint:gosec // G115: MB fits in int64
	}
}

// SchedMediaSweepTask deletes uploads no database row points at.
func (a *Application) SchedMediaSweepTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	if a.mediaStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	removed, err := sweepMedia(ctx, a, a.mediaStore)
	if err != nil {
		zap.L().Error("media sweep failed", zap.String("namespace", "media"), zap.Error(err))
		return
	}
	zap.L().Info("media sweep done", zap.String("namespace", "media"), zap.Int("removed", removed))
}

func sweepMedia(ctx context.Context, p DBProvider, store *media.Store) (int, error) {
	refs, err := media.ReferencedPaths(ctx, p.DB())
	if err != nil {
		return 0, err
	}
	return store.Sweep(ctx, refs, MediaSweepGrace)
}
