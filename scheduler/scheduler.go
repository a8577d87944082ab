// Package scheduler rebuilds the interaction dataset on a daily schedule and
// warns when the served dataset goes stale.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/polyrisk/polyrisk-api/interactions"
	"github.com/polyrisk/polyrisk-api/interfaces"
	"github.com/polyrisk/polyrisk-api/logging"
	"github.com/polyrisk/polyrisk-api/metrics"
	"github.com/polyrisk/polyrisk-api/validation"
)

// Compile-time checks
var (
	_ interfaces.Scheduler      = (*Scheduler)(nil)
	_ interfaces.DatasetBuilder = (*interactions.Builder)(nil)
)

const (
	// DefaultRefreshAt is the daily rebuild time when none is configured.
	DefaultRefreshAt = "03:00"

	staleAfter      = 25 * time.Hour
	monitorInterval = time.Hour
)

// Scheduler handles dataset rebuilds and staleness monitoring
type Scheduler struct {
	dataStore interfaces.DataStore
	builder   interfaces.DatasetBuilder
	validator interfaces.DataValidator
	refreshAt string
	scheduler *gocron.Scheduler

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewScheduler creates a scheduler rebuilding the dataset every day at
// refreshAt (HH:MM, local time).
func NewScheduler(dataStore interfaces.DataStore, builder interfaces.DatasetBuilder, refreshAt string) *Scheduler {
	if refreshAt == "" {
		refreshAt = DefaultRefreshAt
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		dataStore: dataStore,
		builder:   builder,
		validator: validation.NewDataValidator(),
		refreshAt: refreshAt,
		scheduler: gocron.NewScheduler(time.Local),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the daily rebuild, starts monitoring and then performs the
// initial build. An initial failure is returned but the schedule stays active.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Days().At(s.refreshAt).Do(func() {
		if err := s.updateData(); err != nil {
			logging.Error("Failed to rebuild interaction dataset", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule dataset rebuild", "error", err)
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring()

	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial dataset build", "error", err)
		return fmt.Errorf("initial dataset build failed: %w", err)
	}

	return nil
}

// Stop stops the scheduler and cancels a running build
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.scheduler.Stop()
	})
}

// updateData builds, validates and swaps in a new dataset. A rejected build
// leaves the served dataset untouched.
func (s *Scheduler) updateData() error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting interaction dataset rebuild", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	dataset, err := s.builder.Build(s.ctx)
	if err != nil {
		metrics.RecordDatasetBuild(time.Since(start), 0, 0, err)
		return fmt.Errorf("failed to build dataset: %w", err)
	}

	if err := s.validator.ValidateDataset(dataset); err != nil {
		metrics.RecordDatasetBuild(time.Since(start), 0, 0, err)
		return fmt.Errorf("dataset rejected: %w", err)
	}

	report := s.validator.ReportDataQuality(dataset)
	s.dataStore.UpdateData(dataset, report)

	elapsed := time.Since(start)
	metrics.RecordDatasetBuild(elapsed, len(dataset.Rows), dataset.MatchRate, nil)
	logging.Info("Interaction dataset updated",
		"duration", elapsed.String(),
		"rows", len(dataset.Rows),
		"compounds", len(dataset.Compounds),
		"match_rate", fmt.Sprintf("%.1f%%", report.MatchRate*100),
	)

	return nil
}

func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.checkStaleness(time.Now())
			}
		}
	}()
}

// checkStaleness reports whether the dataset is older than a day plus slack.
func (s *Scheduler) checkStaleness(now time.Time) bool {
	lastUpdate := s.dataStore.GetLastUpdated()
	if lastUpdate.IsZero() || now.Sub(lastUpdate) > staleAfter {
		logging.Warn("Interaction dataset hasn't been updated in over 25 hours",
			"last_update", lastUpdate.Format(time.RFC3339))
		return true
	}
	return false
}
