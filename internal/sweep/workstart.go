package sweep

import (
	"context"

	"github.com/sirupsen/logrus"

	"workday-bot/internal/clock"
	"workday-bot/internal/i18n"
	"workday-bot/internal/model"
	"workday-bot/internal/notify"
)

// WorkStartSweep resets every tracked user's record when a team's local
// clock reaches the configured start hour, then announces the new day.
type WorkStartSweep struct {
	policies PolicyStore
	workdays WorkdayStore
	roster   notify.Directory
	notifier notify.Notifier
	clock    clock.Clock
}

func NewWorkStartSweep(policies PolicyStore, workdays WorkdayStore, roster notify.Directory, notifier notify.Notifier, clk clock.Clock) *WorkStartSweep {
	return &WorkStartSweep{policies: policies, workdays: workdays, roster: roster, notifier: notifier, clock: clk}
}

// Run performs one tick over all teams.
//
// The trigger is the exact hour:minute==0 window: with a one-minute tick
// cadence it fires once per day, and a tick skew that misses the minute
// skips that day's reset. Known fragility, kept to match the system this
// replaces; widen only together with an already-reset-today marker.
func (w *WorkStartSweep) Run(ctx context.Context) {
	forEachTeam(ctx, w.roster, w.policies, "work-start", func(teamID string, policy *model.Policy, members []notify.Member) {
		now := clock.In(w.clock, policy.Timezone)
		if now.Hour() != policy.WorkStartHour || now.Minute() != 0 {
			return
		}

		for _, m := range members {
			if err := w.workdays.Reset(ctx, m.UserID, teamID); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"team": teamID, "user": m.UserID}).Warn("daily reset failed")
			}
		}

		if err := w.notifier.Broadcast(teamID, i18n.T(ctx, "sweep.workday_open")); err != nil {
			logrus.WithError(err).WithField("team", teamID).Warn("work-start broadcast failed")
		}
	})
}
