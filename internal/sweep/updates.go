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

// UpdateSweep nudges users whose mandatory status update is due and
// advances their deadline a full interval from now. One reminder per
// qualifying user per tick; voluntary updates never move the deadline.
type UpdateSweep struct {
	policies PolicyStore
	workdays WorkdayStore
	roster   notify.Directory
	notifier notify.Notifier
	clock    clock.Clock
}

func NewUpdateSweep(policies PolicyStore, workdays WorkdayStore, roster notify.Directory, notifier notify.Notifier, clk clock.Clock) *UpdateSweep {
	return &UpdateSweep{policies: policies, workdays: workdays, roster: roster, notifier: notifier, clock: clk}
}

// Run performs one tick over all teams.
func (u *UpdateSweep) Run(ctx context.Context) {
	forEachTeam(ctx, u.roster, u.policies, "update-reminder", func(teamID string, policy *model.Policy, members []notify.Member) {
		now := clock.In(u.clock, policy.Timezone)
		for _, m := range members {
			err := u.workdays.Mutate(ctx, m.UserID, teamID, func(rec *model.WorkdayRecord) error {
				if !tracker.UpdateReminderDue(rec, now) {
					return errNotDue
				}
				tracker.AdvanceUpdateReminder(rec, policy, now)
				return nil
			})
			if errors.Is(err, errNotDue) {
				continue
			}
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"team": teamID, "user": m.UserID}).Warn("update reminder persist failed")
				continue
			}

			// The deadline is already advanced; a lost nudge is not
			// retried until the next interval.
			text := i18n.T(ctx, "sweep.update_reminder", map[string]any{"Username": m.Username})
			if err := u.notifier.DirectMessage(m.UserID, text); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{"team": teamID, "user": m.UserID}).Warn("update reminder delivery failed")
			}
		}
	})
}
