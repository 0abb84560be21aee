// Package sweep runs the three periodic background passes: the work-start
// day reset, mandatory-update reminders and break-overrun nudges. Each
// pass is an independent minute-cadence job; a failure for one user or
// one team never aborts the rest of the tick.
package sweep

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"workday-bot/internal/clock"
	"workday-bot/internal/model"
	"workday-bot/internal/notify"
)

// errNotDue aborts a Mutate without persisting when the re-checked
// condition no longer holds (another actor got there first).
var errNotDue = errors.New("sweep: condition no longer due")

// PolicyStore is the policy read contract the sweeps need.
type PolicyStore interface {
	Get(ctx context.Context, teamID string) (*model.Policy, error)
}

// WorkdayStore is the attendance mutation contract the sweeps need.
type WorkdayStore interface {
	Mutate(ctx context.Context, userID, teamID string, fn func(*model.WorkdayRecord) error) error
	Reset(ctx context.Context, userID, teamID string) error
}

// Sweeper owns the cron runner and the three checkers.
type Sweeper struct {
	cron      *cron.Cron
	workStart *WorkStartSweep
	updates   *UpdateSweep
	breaks    *BreakSweep
}

func New(policies PolicyStore, workdays WorkdayStore, roster notify.Directory, notifier notify.Notifier, clk clock.Clock) *Sweeper {
	return &Sweeper{
		cron:      cron.New(),
		workStart: NewWorkStartSweep(policies, workdays, roster, notifier, clk),
		updates:   NewUpdateSweep(policies, workdays, roster, notifier, clk),
		breaks:    NewBreakSweep(policies, workdays, roster, notifier, clk),
	}
}

// Start schedules the three sweeps at a one-minute cadence and starts the
// runner.
func (s *Sweeper) Start() error {
	jobs := []struct {
		name string
		run  func(context.Context)
	}{
		{"work-start", s.workStart.Run},
		{"update-reminder", s.updates.Run},
		{"break-reminder", s.breaks.Run},
	}
	for _, j := range jobs {
		job := j
		if _, err := s.cron.AddFunc("* * * * *", func() {
			job.run(context.Background())
		}); err != nil {
			return err
		}
	}
	s.cron.Start()
	logrus.Info("sweeps started")
	return nil
}

// Stop stops the runner and waits for an in-flight tick to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logrus.Info("sweeps stopped")
}

// forEachTeam resolves each team's policy and local time and hands them to
// fn, logging and skipping teams that fail to resolve.
func forEachTeam(ctx context.Context, roster notify.Directory, policies PolicyStore, sweep string, fn func(teamID string, policy *model.Policy, members []notify.Member)) {
	teams, err := roster.Teams()
	if err != nil {
		logrus.WithError(err).WithField("sweep", sweep).Warn("team enumeration failed")
		return
	}
	for _, teamID := range teams {
		policy, err := policies.Get(ctx, teamID)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"sweep": sweep, "team": teamID}).Warn("policy load failed")
			continue
		}
		members, err := roster.TrackedMembers(teamID, policy.EmployeeRoleName)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"sweep": sweep, "team": teamID}).Warn("roster load failed")
			continue
		}
		fn(teamID, policy, members)
	}
}
