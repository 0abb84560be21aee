package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"workday-bot/internal/clock"
	"workday-bot/internal/i18n"
	"workday-bot/internal/model"
	"workday-bot/internal/notify"
	"workday-bot/internal/tracker"
)

// PolicyStore is the policy persistence contract the service needs.
type PolicyStore interface {
	Get(ctx context.Context, teamID string) (*model.Policy, error)
	SetSetting(ctx context.Context, teamID, key, value string) (string, error)
}

// WorkdayStore is the attendance persistence contract the service needs.
type WorkdayStore interface {
	Get(ctx context.Context, userID, teamID string) (*model.WorkdayRecord, error)
	Mutate(ctx context.Context, userID, teamID string, fn func(*model.WorkdayRecord) error) error
	Reset(ctx context.Context, userID, teamID string) error
}

// AttendanceService implements the command surface: start, break, back,
// done, config and voluntary status-update capture. Each command touches
// exactly one user's record. Transition rejections come back as reply
// text; only store and roster failures surface as errors.
type AttendanceService struct {
	policies PolicyStore
	workdays WorkdayStore
	notifier notify.Notifier
	roster   notify.Directory
	clock    clock.Clock
}

func NewAttendanceService(policies PolicyStore, workdays WorkdayStore, notifier notify.Notifier, roster notify.Directory, clk clock.Clock) *AttendanceService {
	return &AttendanceService{policies: policies, workdays: workdays, notifier: notifier, roster: roster, clock: clk}
}

// Start begins the caller's workday.
func (s *AttendanceService) Start(ctx context.Context, userID, username, teamID string) (string, error) {
	policy, eligible, reply, err := s.admit(ctx, userID, teamID)
	if err != nil || !eligible {
		return reply, err
	}

	now := clock.In(s.clock, policy.Timezone)
	var lateMinutes int
	err = s.workdays.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		lateMinutes, err = tracker.BeginWorkday(rec, policy, now)
		return err
	})
	if errors.Is(err, tracker.ErrAlreadyStarted) {
		return i18n.T(ctx, "start.already_started"), nil
	}
	if err != nil {
		return "", fmt.Errorf("start workday: %w", err)
	}

	response := i18n.T(ctx, "start.success", map[string]any{"Hours": policy.UpdateReminderIntervalHours})
	if lateMinutes > 0 {
		response += "\n" + i18n.T(ctx, "start.late", map[string]any{"Minutes": lateMinutes})
		notice := i18n.T(ctx, "start.late_log", map[string]any{"Username": username, "Minutes": lateMinutes})
		if err := s.notifier.LogEvent(teamID, notice); err != nil {
			logrus.WithError(err).WithField("user", userID).Warn("late-start log delivery failed")
		}
	}
	return response, nil
}

// Break puts the caller on break.
func (s *AttendanceService) Break(ctx context.Context, userID, username, teamID string) (string, error) {
	policy, eligible, reply, err := s.admit(ctx, userID, teamID)
	if err != nil || !eligible {
		return reply, err
	}

	now := clock.In(s.clock, policy.Timezone)
	var remaining int
	err = s.workdays.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		remaining, err = tracker.BeginBreak(rec, policy, now)
		return err
	})
	switch {
	case errors.Is(err, tracker.ErrNotStarted):
		return i18n.T(ctx, "break.not_started"), nil
	case errors.Is(err, tracker.ErrAlreadyOnBreak):
		return i18n.T(ctx, "break.already_on_break"), nil
	case errors.Is(err, tracker.ErrBreakAllowanceExhausted):
		return i18n.T(ctx, "break.exhausted", map[string]any{"Max": policy.MaxBreakMinutes}), nil
	case err != nil:
		return "", fmt.Errorf("begin break: %w", err)
	}

	return i18n.T(ctx, "break.started", map[string]any{"Remaining": remaining}), nil
}

// Back ends the caller's break.
func (s *AttendanceService) Back(ctx context.Context, userID, username, teamID string) (string, error) {
	policy, eligible, reply, err := s.admit(ctx, userID, teamID)
	if err != nil || !eligible {
		return reply, err
	}

	now := clock.In(s.clock, policy.Timezone)
	var breakMinutes, remaining, total int
	err = s.workdays.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		breakMinutes, remaining, err = tracker.EndBreak(rec, policy, now)
		total = rec.TotalBreakMinutes
		return err
	})
	if errors.Is(err, tracker.ErrNotOnBreak) {
		return i18n.T(ctx, "back.not_on_break"), nil
	}
	if err != nil {
		return "", fmt.Errorf("end break: %w", err)
	}

	return i18n.T(ctx, "back.success", map[string]any{
		"Minutes":   breakMinutes,
		"Total":     total,
		"Remaining": remaining,
	}), nil
}

// Done completes the caller's workday, posts the daily summary to the log
// sink and resets the record.
func (s *AttendanceService) Done(ctx context.Context, userID, username, teamID string) (string, error) {
	policy, eligible, reply, err := s.admit(ctx, userID, teamID)
	if err != nil || !eligible {
		return reply, err
	}

	now := clock.In(s.clock, policy.Timezone)
	var summary *model.DaySummary
	err = s.workdays.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		summary, err = tracker.CompleteWorkday(rec, policy, now)
		return err
	})
	switch {
	case errors.Is(err, tracker.ErrNotStarted):
		return i18n.T(ctx, "done.not_started"), nil
	case errors.Is(err, tracker.ErrOnBreak):
		return i18n.T(ctx, "done.on_break"), nil
	case err != nil:
		return "", fmt.Errorf("complete workday: %w", err)
	}

	if err := s.notifier.LogEvent(teamID, formatSummary(ctx, username, summary)); err != nil {
		logrus.WithError(err).WithField("user", userID).Warn("daily summary delivery failed")
	}
	return i18n.T(ctx, "done.success"), nil
}

// RecordUpdate captures a voluntary status message. Users without a
// started workday are skipped silently; the message stream is noisy and
// this is passive capture, not a command.
func (s *AttendanceService) RecordUpdate(ctx context.Context, userID, teamID, text string) error {
	policy, err := s.policies.Get(ctx, teamID)
	if err != nil {
		return fmt.Errorf("get policy: %w", err)
	}
	tracked, err := s.roster.IsTrackedMember(userID, teamID, policy.EmployeeRoleName)
	if err != nil {
		return fmt.Errorf("roster lookup: %w", err)
	}
	if !tracked {
		return nil
	}

	now := clock.In(s.clock, policy.Timezone)
	err = s.workdays.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		return tracker.RecordUpdate(rec, now, text)
	})
	if errors.Is(err, tracker.ErrNotStarted) {
		return nil
	}
	return err
}

// Config lists, shows or updates a team's policy settings. Empty key
// lists everything; empty value shows the current value.
func (s *AttendanceService) Config(ctx context.Context, teamID, key, value string) (string, error) {
	policy, err := s.policies.Get(ctx, teamID)
	if err != nil {
		return "", fmt.Errorf("get policy: %w", err)
	}

	if key == "" {
		var b strings.Builder
		b.WriteString(i18n.T(ctx, "config.header"))
		for _, k := range model.SettingKeys {
			v, _ := policy.Get(k)
			fmt.Fprintf(&b, "\n- **%s**: %s", k, v)
		}
		b.WriteString("\n\n" + i18n.T(ctx, "config.usage"))
		return b.String(), nil
	}

	if value == "" {
		v, err := policy.Get(key)
		if err != nil {
			return i18n.T(ctx, "config.unknown_key", map[string]any{"Keys": strings.Join(model.SettingKeys, ", ")}), nil
		}
		return i18n.T(ctx, "config.current_value", map[string]any{"Key": key, "Value": v}), nil
	}

	stored, err := s.policies.SetSetting(ctx, teamID, key, value)
	switch {
	case errors.Is(err, model.ErrUnknownSetting):
		return i18n.T(ctx, "config.unknown_key", map[string]any{"Keys": strings.Join(model.SettingKeys, ", ")}), nil
	case errors.Is(err, model.ErrUnknownTimezone):
		return i18n.T(ctx, "config.unknown_timezone", map[string]any{"Value": value}), nil
	case errors.Is(err, model.ErrInvalidValue):
		return i18n.T(ctx, "config.invalid_value", map[string]any{"Key": key}), nil
	case err != nil:
		return "", fmt.Errorf("set setting: %w", err)
	}
	return i18n.T(ctx, "config.updated", map[string]any{"Key": key, "Value": stored}), nil
}

// admit loads the policy and checks role eligibility. When the caller is
// not tracked, the rejection reply is returned with eligible=false.
func (s *AttendanceService) admit(ctx context.Context, userID, teamID string) (policy *model.Policy, eligible bool, reply string, err error) {
	policy, err = s.policies.Get(ctx, teamID)
	if err != nil {
		return nil, false, "", fmt.Errorf("get policy: %w", err)
	}
	tracked, err := s.roster.IsTrackedMember(userID, teamID, policy.EmployeeRoleName)
	if err != nil {
		return nil, false, "", fmt.Errorf("roster lookup: %w", err)
	}
	if !tracked {
		return policy, false, i18n.T(ctx, "start.not_eligible", map[string]any{"Role": policy.EmployeeRoleName}), nil
	}
	return policy, true, "", nil
}

func formatSummary(ctx context.Context, username string, s *model.DaySummary) string {
	var b strings.Builder
	b.WriteString(i18n.T(ctx, "summary.title", map[string]any{"Username": username, "Date": s.Date}))
	b.WriteString("\n\n")
	b.WriteString(i18n.T(ctx, "summary.started_at", map[string]any{"Start": s.StartTime.Format("15:04")}))
	b.WriteString("\n")
	b.WriteString(i18n.T(ctx, "summary.break_total", map[string]any{"Minutes": s.BreakMinutes}))
	b.WriteString("\n")
	b.WriteString(i18n.T(ctx, "summary.work_total", map[string]any{"Hours": fmt.Sprintf("%.2f", s.WorkHours)}))
	b.WriteString("\n\n")

	if len(s.Updates) == 0 {
		b.WriteString(i18n.T(ctx, "summary.no_updates"))
		return b.String()
	}
	b.WriteString(i18n.T(ctx, "summary.updates_header"))
	for i, u := range s.Updates {
		fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, u.Time.Format("15:04"), u.Text)
	}
	return b.String()
}
