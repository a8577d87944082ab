// Package health reports service health from dataset freshness and the
// reachability of the patient store.
package health

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/polyrisk/polyrisk-api/interfaces"
)

// Pinger is satisfied by the patient repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	store     Pinger
	refreshAt string
	now       func() time.Time
}

// NewHealthChecker creates a health checker. dataStore is nil when no
// interaction pipeline is configured; dataset freshness is then not checked.
func NewHealthChecker(dataStore interfaces.DataStore, store Pinger, refreshAt string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		store:     store,
		refreshAt: refreshAt,
		now:       time.Now,
	}
}

// HealthCheck returns the health status, details and the HTTP code for /health
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	status, httpStatus = "healthy", http.StatusOK
	data = map[string]any{}

	degrade := func(to string) {
		if status != "unhealthy" {
			status = to
		}
		httpStatus = http.StatusServiceUnavailable
	}

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			data["store"] = "unreachable"
			data["store_error"] = err.Error()
			degrade("unhealthy")
		} else {
			data["store"] = "ok"
		}
	}

	if h.dataStore == nil {
		data["dataset"] = "disabled"
		return status, data, httpStatus
	}

	rows := len(h.dataStore.GetRows())
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	dataAge := h.now().Sub(lastUpdate)

	switch {
	case h.dataStore.GetDataset() == nil && isUpdating:
		degrade("degraded")
	case h.dataStore.GetDataset() == nil:
		degrade("unhealthy")
	case dataAge > 48*time.Hour:
		degrade("unhealthy")
	case dataAge > 24*time.Hour:
		degrade("degraded")
	}

	data["dataset"] = map[string]any{
		"rows":        rows,
		"is_updating": isUpdating,
		"next_update": h.CalculateNextUpdate().Format(time.RFC3339),
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled rebuild time
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextRefresh(h.now(), h.refreshAt)
}

// nextRefresh returns the first HH:MM occurrence strictly after now. An
// unparsable clock falls back to 03:00.
func nextRefresh(now time.Time, clock string) time.Time {
	at, err := time.Parse("15:04", clock)
	if err != nil {
		at = time.Date(0, 1, 1, 3, 0, 0, 0, time.UTC)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
