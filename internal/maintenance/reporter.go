package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/finware/notify/internal/bus"
	"github.com/finware/notify/internal/models"
	"github.com/finware/notify/pkg/logger"
)

const (
	defaultPruneSpec = "@daily"
	defaultStatsSpec = "@hourly"
)

// Reporter runs the background maintenance jobs: reporting delivery-bus
// occupancy and, only when a retention is configured, pruning old read
// notifications. The notification core never deletes rows on its own;
// pruning stays off until an operator opts in via WithRetentionDays.
type Reporter struct {
	db        *gorm.DB
	registry  *bus.Registry[models.Notification]
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	pruneSchedule string
	statsSchedule string
}

// Option customises the Reporter.
type Option func(*Reporter)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Reporter) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRetentionDays enables pruning of read notifications older than the
// given number of days. Zero or negative keeps pruning disabled.
func WithRetentionDays(days int) Option {
	return func(r *Reporter) {
		if days > 0 {
			r.retention = days
		}
	}
}

// WithPruneSchedule overrides the cron specification for notification pruning.
func WithPruneSchedule(spec string) Option {
	return func(r *Reporter) {
		if spec != "" {
			r.pruneSchedule = spec
		}
	}
}

// WithStatsSchedule overrides the cron specification for bus stats reporting.
func WithStatsSchedule(spec string) Option {
	return func(r *Reporter) {
		if spec != "" {
			r.statsSchedule = spec
		}
	}
}

// NewReporter constructs a Reporter with sensible defaults. A nil dependency
// results in the corresponding job being skipped.
func NewReporter(db *gorm.DB, registry *bus.Registry[models.Notification], opts ...Option) *Reporter {
	r := &Reporter{
		db:            db,
		registry:      registry,
		now:           time.Now,
		pruneSchedule: defaultPruneSpec,
		statsSchedule: defaultStatsSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.cron == nil {
		r.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return r
}

// Start registers the jobs with the cron scheduler and launches it.
func (r *Reporter) Start() error {
	if r.db != nil && r.retention > 0 {
		if _, err := r.cron.AddFunc(r.pruneSchedule, func() {
			cutoff := r.now().AddDate(0, 0, -r.retention)
			if _, err := PruneRead(context.Background(), r.db, cutoff); err != nil {
				r.log.Warn("notification prune failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if r.registry != nil {
		if _, err := r.cron.AddFunc(r.statsSchedule, func() {
			r.reportStats()
		}); err != nil {
			return err
		}
	}

	r.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (r *Reporter) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes all configured jobs sequentially. Used in tests and during
// graceful shutdown.
func (r *Reporter) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if r.db != nil && r.retention > 0 {
		cutoff := r.now().AddDate(0, 0, -r.retention)
		if _, err := PruneRead(ctx, r.db, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if r.registry != nil {
		r.reportStats()
	}

	return errs
}

func (r *Reporter) reportStats() {
	stats := r.registry.Snapshot()
	r.log.Info("delivery bus occupancy",
		zap.Int("topics", stats.Topics),
		zap.Int("subscribers", stats.Subscribers),
	)
}

// PruneRead removes read notifications created before cutoff and returns the
// number of rows deleted.
func PruneRead(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("prune notifications: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
