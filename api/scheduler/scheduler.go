package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/databases"
)

// jobTimeout bounds a single cleanup run
const jobTimeout = 5 * time.Minute

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron *cron.Cron
	UDB  databases.UserDatabase

	// Schedule is a cron expression, "@every 1h" by default
	Schedule string
	// UnverifiedTTL is how long an account may stay unverified before removal
	UnverifiedTTL time.Duration

	now func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(uDB databases.UserDatabase, schedule string, unverifiedTTL time.Duration) *Scheduler {
	if schedule == "" {
		schedule = "@every 1h"
	}
	if unverifiedTTL <= 0 {
		unverifiedTTL = 24 * time.Hour
	}
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		UDB:           uDB,
		Schedule:      schedule,
		UnverifiedTTL: unverifiedTTL,
		now:           time.Now,
	}
}

// Start registers the jobs and begins running them
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.Schedule, s.removeUnverifiedAccounts); err != nil {
		zap.S().Errorw("failed to register unverified account cleanup job", "schedule", s.Schedule, "error", err)
		return err
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "schedule", s.Schedule, "unverifiedTTL", s.UnverifiedTTL)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

func (s *Scheduler) removeUnverifiedAccounts() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.RemoveUnverifiedAccounts(ctx); err != nil {
		zap.S().Errorw("failed to remove unverified accounts", "error", err)
	}
}

// RemoveUnverifiedAccounts deletes accounts that were never verified and are
// older than UnverifiedTTL
func (s *Scheduler) RemoveUnverifiedAccounts(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.UnverifiedTTL)
	filter := bson.M{
		"accountVerified": false,
		"createdAt":       bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	}

	deleted, err := s.UDB.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	zap.S().Infow("unverified account cleanup complete", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
