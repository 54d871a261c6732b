package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/logger"
	"setoran-pa/internal/pkg/requestid"
)

// RosterSync refreshes the roster stream on a cron schedule while a
// lecturer is logged in
type RosterSync struct {
	cron     *cron.Cron
	session  *SessionService
	deposits *DepositService
}

// NewRosterSync schedules the sync. schedule accepts standard cron specs
// and descriptors such as "@every 5m".
func NewRosterSync(schedule string, session *SessionService, deposits *DepositService) (*RosterSync, error) {
	cronLog := cron.PrintfLogger(logger.Log)
	r := &RosterSync{
		cron:     cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
		session:  session,
		deposits: deposits,
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid roster sync schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the scheduler in its own goroutine
func (r *RosterSync) Start() {
	r.cron.Start()
	logger.Log.Info("⏰ Roster sync started")
}

// Stop halts the scheduler and waits for a running sync to finish
func (r *RosterSync) Stop() {
	<-r.cron.Stop().Done()
	logger.Log.Info("⏰ Roster sync stopped")
}

// Run performs one sync. It is skipped when no credentials are stored.
func (r *RosterSync) Run(ctx context.Context) domain.Status {
	ctx, _ = requestid.New(ctx)
	log := logger.For(ctx, "roster_sync")
	if !r.session.HasCredentials(ctx) {
		log.Debug("⏭️ No credentials, skipping roster sync")
		return domain.StatusIdle
	}
	state := r.deposits.FetchRoster(ctx)
	if state.Status == domain.StatusSuccess {
		log.WithField("students", len(state.Data.Students)).Info("✅ Roster synced")
	}
	return state.Status
}
