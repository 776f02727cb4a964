// Package metrics keeps small process metrics in an embedded time series
// store. Every update also refreshes an in-memory current value.
package metrics

import (
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
	"go.uber.org/zap"
)

const (
	OrdersPlaced        = "orders_placed"
	OrderRevenue        = "order_revenue"
	NotifySent          = "notify_sent"
	NotifyFailed        = "notify_failed"
	MediaStored         = "media_stored"
	MediaSwept          = "media_swept"
	SystemCpuUse        = "system_cpuuse"
	SystemMemUse        = "system_memuse"
	StorefrontCpuUse    = "storefront_cpuuse"
	StorefrontMemUse    = "storefront_memuse"
	StorefrontGoroutine = "storefront_goroutines"
)

var (
	mu      sync.RWMutex
	storage tstorage.Storage
	current = map[string]int64{}
)

// Point one stored sample
type Point struct {
	Timestamp int64 `json:"timestamp"`
	Value     int64 `json:"value"`
}

// InitMetrics opens the store under <workdir>/data/metrics; an empty workdir
// keeps everything in memory.
func InitMetrics(workdir string) error {
	opts := []tstorage.Option{
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(time.Hour),
		tstorage.WithRetention(7 * 24 * time.Hour),
		tstorage.WithWriteTimeout(5 * time.Second),
	}
	if workdir != "" {
		opts = append(opts, tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")))
	}
	st, err := tstorage.NewStorage(opts...)
	if err != nil {
		return err
	}
	mu.Lock()
	old := storage
	storage = st
	current = map[string]int64{}
	mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func insert(name string, value int64) {
	mu.RLock()
	st := storage
	mu.RUnlock()
	if st == nil {
		return
	}
	err := st.InsertRows([]tstorage.Row{{
		Metric:    name,
		DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: float64(value)},
	}})
	if err != nil {
		zap.L().Warn("metrics insert failed", zap.String("namespace", "metrics"),
			zap.String("metric", name), zap.Error(err))
	}
}

// SetGauge records an absolute value.
func SetGauge(name string, value int64) {
	mu.Lock()
	current[name] = value
	mu.Unlock()
	insert(name, value)
}

// Incr adds delta to a counter and records the new running total.
func Incr(name string, delta int64) {
	mu.Lock()
	current[name] += delta
	v := current[name]
	mu.Unlock()
	insert(name, v)
}

// Current returns the latest value of name since InitMetrics.
func Current(name string) int64 {
	mu.RLock()
	defer mu.RUnlock()
	return current[name]
}

// Snapshot copies every current value.
func Snapshot() map[string]int64 {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]int64, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}

// Query returns the samples of name recorded within the last period.
func Query(name string, period time.Duration) ([]Point, error) {
	mu.RLock()
	st := storage
	mu.RUnlock()
	if st == nil {
		return []Point{}, nil
	}
	end := time.Now().Unix() + 1
	start := time.Now().Add(-period).Unix()
	rows, err := st.Select(name, nil, start, end)
	if errors.Is(err, tstorage.ErrNoDataPoints) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, Point{Timestamp: r.Timestamp, Value: int64(r.Value)})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}

func Close() error {
	mu.Lock()
	st := storage
	storage = nil
	mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Close()
}
