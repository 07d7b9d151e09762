// Package reaper removes expired ephemeral credentials on a cron schedule.
package reaper

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/repomanager"
	"github.com/robfig/cron/v3"
)

const (
	DefaultOTPSchedule   = "0 * * * *"
	DefaultResetSchedule = "* * * * *"
)

type Reaper struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	schedules map[models.CredentialKind]string
}

// NewReaper builds a reaper sweeping signup codes on otpSchedule and reset
// tokens on resetSchedule. Empty schedules fall back to the defaults.
func NewReaper(db *sql.DB, m repomanager.RepositoryManager, otpSchedule, resetSchedule string,
	l logging.Logger, mtr *metrics.Metrics) *Reaper {

	if otpSchedule == "" {
		otpSchedule = DefaultOTPSchedule
	}
	if resetSchedule == "" {
		resetSchedule = DefaultResetSchedule
	}
	return &Reaper{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "reaper"),
		metrics:     mtr,
		now:         time.Now,
		schedules: map[models.CredentialKind]string{
			models.KindSignupOTP:  otpSchedule,
			models.KindResetToken: resetSchedule,
		},
	}
}

// Sweep deletes credentials of kind that expired strictly before now.
// It is idempotent; sweeping an empty table returns 0 and no error.
func (r *Reaper) Sweep(ctx context.Context, kind models.CredentialKind, now time.Time) (int64, error) {
	n, err := r.repomanager.Credentials(r.db).DeleteExpiredBefore(ctx, kind, now)
	if err != nil {
		r.metrics.ReaperFailed(string(kind))
		return 0, fmt.Errorf("sweep %s: %w", kind, err)
	}
	r.metrics.ReaperDeleted(string(kind), n)
	r.logger.Info(ctx, "expired credentials removed", "kind", kind, "count", n)
	return n, nil
}

// Start schedules one sweep job per credential kind and blocks until ctx
// is done, then waits for running sweeps to finish.
func (r *Reaper) Start(ctx context.Context) error {
	c := cron.New()

	for kind, spec := range r.schedules {
		if _, err := c.AddFunc(spec, func() { r.run(ctx, kind) }); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", kind, spec, err)
		}
	}

	c.Start()
	r.logger.Info(ctx, "reaper started",
		"otp_schedule", r.schedules[models.KindSignupOTP],
		"reset_schedule", r.schedules[models.KindResetToken])

	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	r.logger.Info(context.Background(), "reaper stopped")
	return nil
}

func (r *Reaper) run(ctx context.Context, kind models.CredentialKind) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.Sweep(ctx, kind, r.now()); err != nil {
		r.logger.Error(ctx, "sweep failed", "kind", kind, "error", err)
	}
}
