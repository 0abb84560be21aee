// Package tracker holds the attendance state machine. Every transition is a
// pure function over one workday record, the owning team's policy and the
// current team-local time; persistence and delivery happen in the callers.
package tracker

import (
	"time"

	"workday-bot/internal/model"
)

// State is the per-user attendance state derived from a record.
type State string

const (
	StateNotStarted State = "not_started"
	StateWorking    State = "working"
	StateOnBreak    State = "on_break"
)

// StateOf reports the state a record is in.
func StateOf(r *model.WorkdayRecord) State {
	switch {
	case !r.WorkdayStarted:
		return StateNotStarted
	case r.OnBreak:
		return StateOnBreak
	default:
		return StateWorking
	}
}

// BeginWorkday starts the user's workday at now. It returns how many
// minutes after the scheduled start hour the user was, zero when on time.
func BeginWorkday(r *model.WorkdayRecord, p *model.Policy, now time.Time) (lateMinutes int, err error) {
	if r.WorkdayStarted {
		return 0, ErrAlreadyStarted
	}

	scheduled := time.Date(now.Year(), now.Month(), now.Day(), p.WorkStartHour, 0, 0, 0, now.Location())
	if now.After(scheduled) {
		lateMinutes = int(now.Sub(scheduled).Minutes())
	}

	end := now.Add(time.Duration(p.WorkdayDurationHours) * time.Hour)
	next := now.Add(time.Duration(p.UpdateReminderIntervalHours) * time.Hour)

	r.WorkdayStarted = true
	r.WorkdayStartTime = &now
	r.WorkdayEndTime = &end
	r.NextUpdateTime = &next
	return lateMinutes, nil
}

// BeginBreak puts the user on break and returns the remaining daily break
// allowance in minutes.
func BeginBreak(r *model.WorkdayRecord, p *model.Policy, now time.Time) (remaining int, err error) {
	if !r.WorkdayStarted {
		return 0, ErrNotStarted
	}
	if r.OnBreak {
		return 0, ErrAlreadyOnBreak
	}
	if r.TotalBreakMinutes >= p.MaxBreakMinutes {
		return 0, ErrBreakAllowanceExhausted
	}

	r.OnBreak = true
	r.BreakStartTime = &now
	r.BreakRemindersSent = 0
	return p.MaxBreakMinutes - r.TotalBreakMinutes, nil
}

// EndBreak ends the current break. The break's whole minutes are added to
// the daily total and the projected workday end shifts forward by the same
// amount: breaks extend the day rather than counting against it.
func EndBreak(r *model.WorkdayRecord, p *model.Policy, now time.Time) (breakMinutes, remaining int, err error) {
	if !r.OnBreak || r.BreakStartTime == nil {
		return 0, 0, ErrNotOnBreak
	}

	breakMinutes = int(now.Sub(*r.BreakStartTime).Minutes())
	if breakMinutes < 0 {
		// Clock went backwards; charge nothing.
		breakMinutes = 0
	}

	r.OnBreak = false
	r.BreakStartTime = nil
	r.TotalBreakMinutes += breakMinutes
	r.BreakRemindersSent = 0
	if r.WorkdayEndTime != nil {
		shifted := r.WorkdayEndTime.Add(time.Duration(breakMinutes) * time.Minute)
		r.WorkdayEndTime = &shifted
	}

	remaining = p.MaxBreakMinutes - r.TotalBreakMinutes
	if remaining < 0 {
		remaining = 0
	}
	return breakMinutes, remaining, nil
}

// CompleteWorkday finalizes the day, producing the summary for the log
// sink, and resets the record to the not-started state. A user still on
// break must end it first.
func CompleteWorkday(r *model.WorkdayRecord, p *model.Policy, now time.Time) (*model.DaySummary, error) {
	if !r.WorkdayStarted || r.WorkdayStartTime == nil {
		return nil, ErrNotStarted
	}
	if r.OnBreak {
		return nil, ErrOnBreak
	}

	summary := &model.DaySummary{
		UserID:       r.UserID,
		Date:         now.Format(time.DateOnly),
		StartTime:    *r.WorkdayStartTime,
		BreakMinutes: r.TotalBreakMinutes,
		WorkHours:    now.Sub(*r.WorkdayStartTime).Hours() - float64(r.TotalBreakMinutes)/60,
		Updates:      r.DailyUpdates,
	}

	r.Reset()
	return summary, nil
}

// RecordUpdate appends a voluntary status entry. It does not touch the
// next mandatory update deadline: reminders keep their fixed cadence from
// the last fired reminder regardless of interim activity.
func RecordUpdate(r *model.WorkdayRecord, now time.Time, text string) error {
	if !r.WorkdayStarted {
		return ErrNotStarted
	}
	r.DailyUpdates = append(r.DailyUpdates, model.StatusUpdate{Time: now, Text: text})
	return nil
}

// ApplyDailyReset unconditionally returns the record to the not-started
// state. Idempotent.
func ApplyDailyReset(r *model.WorkdayRecord) {
	r.Reset()
}

// UpdateReminderDue reports whether the mandatory-update nudge should fire.
func UpdateReminderDue(r *model.WorkdayRecord, now time.Time) bool {
	return r.WorkdayStarted && r.NextUpdateTime != nil && !now.Before(*r.NextUpdateTime)
}

// AdvanceUpdateReminder schedules the next mandatory-update deadline at a
// full interval from now.
func AdvanceUpdateReminder(r *model.WorkdayRecord, p *model.Policy, now time.Time) {
	next := now.Add(time.Duration(p.UpdateReminderIntervalHours) * time.Hour)
	r.NextUpdateTime = &next
}

// BreakReminderDue reports whether the next break-overrun nudge should
// fire. Nudges are due at interval multiples from break start and capped
// per break session; repeated checks at the same instant stay false once
// the sent counter has been advanced.
func BreakReminderDue(r *model.WorkdayRecord, p *model.Policy, now time.Time) bool {
	if !r.OnBreak || r.BreakStartTime == nil {
		return false
	}
	if r.BreakRemindersSent >= p.MaxBreakReminders {
		return false
	}
	due := r.BreakStartTime.Add(time.Duration(r.BreakRemindersSent+1) * time.Duration(p.BreakReminderIntervalMins) * time.Minute)
	return !now.Before(due)
}
