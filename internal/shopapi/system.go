package shopapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/bazaarlab/storefront/internal/webserver"
	"github.com/bazaarlab/storefront/pkg/metrics"
)

const (
	defaultMetricHours = 24
	maxMetricHours     = 7 * 24
)

func registerNotificationRoutes() {
	webserver.ApiPOST("/notifications/test", postNotificationTest)
}

func registerMetricsRoutes() {
	webserver.ApiGET("/metrics", getMetrics)
}

// postNotificationTest sends a test message to every configured recipient
// and reports each delivery. Request JSON: { "text": "optional message" }
func postNotificationTest(c echo.Context) error {
	d := getDeps(c).Dispatcher
	if d == nil || d.RecipientCount() == 0 {
		return fail(c, http.StatusBadRequest, "NOTIFY_NOT_CONFIGURED", "No notification recipient configured", nil)
	}
	var payload struct {
		Text string `json:"text" validate:"max=4096"`
	}
	if c.Request().ContentLength != 0 {
		if valid, resp := bindAndValidate(c, &payload, "notification"); !valid {
			return resp
		}
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		text = fmt.Sprintf("<b>Storefront test message</b>\n%s", time.Now().Format(time.RFC3339))
	}

	results := d.Dispatch(c.Request().Context(), text)
	sent := 0
	for _, r := range results {
		if r.Ok {
			sent++
		}
	}
	zap.L().Info("notification test", zap.String("namespace", "notify"),
		zap.Int("sent", sent), zap.Int("total", len(results)))
	return ok(c, map[string]interface{}{
		"sent":    sent,
		"failed":  len(results) - sent,
		"results": results,
	})
}

// getMetrics returns current values, or the series of ?name= over ?hours=.
func getMetrics(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return ok(c, metrics.Snapshot())
	}
	hours := defaultMetricHours
	if raw := strings.TrimSpace(c.QueryParam("hours")); raw != "" {
		h, err := cast.ToIntE(raw)
		if err != nil || h < 1 || h > maxMetricHours {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
				map[string]string{"hours": fmt.Sprintf("Must be between 1 and %d.", maxMetricHours)})
		}
		hours = h
	}
	points, err := metrics.Query(name, time.Duration(hours)*time.Hour)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metrics", err.Error())
	}
	return ok(c, map[string]interface{}{
		"name":    name,
		"hours":   hours,
		"current": metrics.Current(name),
		"points":  points,
	})
}

// getHealth reports whether the database answers a ping.
func getHealth(c echo.Context) error {
	sqlDB, err := getDeps(c).DB.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unavailable",
			"database": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "database": "ok"})
}
