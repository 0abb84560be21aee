package sweep

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"workday-bot/internal/clock"
	"workday-bot/internal/i18n"
	"workday-bot/internal/model"
	"workday-bot/internal/notify"
	"workday-bot/internal/tracker"
)

// BreakSweep nudges users who are still on break at each reminder-interval
// multiple past the break start, capped per break session. Incrementing
// the sent counter moves the next due boundary, so repeated ticks at the
// same instant cannot double-nudge.
type BreakSweep struct {
	policies PolicyStore
	workdays WorkdayStore
	roster   notify.Directory
	notifier notify.Notifier
	clock    clock.Clock
}

func NewBreakSweep(policies PolicyStore, workdays WorkdayStore, roster notify.Directory, notifier notify.Notifier, clk clock.Clock) *BreakSweep {
	return &BreakSweep{policies: policies, workdays: workdays, roster: roster, notifier: notifier, clock: clk}
}

// Run performs one tick over all teams.
func (b *BreakSweep) Run(ctx context.Context) {
	forEachTeam(ctx, b.roster, b.policies, "break-reminder", func(teamID string, policy *model.Policy, members []notify.Member) {
		now := clock.In(b.clock, policy.Timezone)
		for _, m := range members {
			err := b.workdays.Mutate(ctx, m.UserID, teamID, func(rec *model.WorkdayRecord) error {
				if !tracker.BreakReminderDue(rec, policy, now) {
					return errNotDue
				}
				rec.BreakRemindersSent++
				return nil
			})
			if errors.Is(err, errNotDue) {
				continue
			}
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"team": teamID, "user": m.UserID}).Warn("break reminder persist failed")
				continue
			}

			text := i18n.T(ctx, "sweep.break_reminder", map[string]any{"Username": m.Username})
			if err := b.notifier.DirectMessage(m.UserID, text); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"team": teamID, "user": m.UserID}).Warn("break reminder delivery failed")
			}
		}
	})
}
