package model

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Policy setting keys accepted by the config command. This is a closed set:
// unknown keys are rejected rather than stored.
const (
	SettingTimezone                   = "timezone"
	SettingWorkStartHour              = "work_start_hour"
	SettingWorkdayDurationHours       = "workday_duration_hours"
	SettingUpdateReminderIntervalHrs  = "update_reminder_interval_hours"
	SettingMaxBreakMinutes            = "max_break_minutes"
	SettingBreakReminderIntervalMins  = "break_reminder_interval_minutes"
	SettingMaxBreakReminders          = "max_break_reminders"
	SettingEmployeeRoleName           = "employee_role_name"
)

// SettingKeys lists every recognized policy field, in display order.
var SettingKeys = []string{
	SettingTimezone,
	SettingWorkStartHour,
	SettingWorkdayDurationHours,
	SettingUpdateReminderIntervalHrs,
	SettingMaxBreakMinutes,
	SettingBreakReminderIntervalMins,
	SettingMaxBreakReminders,
	SettingEmployeeRoleName,
}

var (
	ErrUnknownSetting  = fmt.Errorf("unknown setting")
	ErrInvalidValue    = fmt.Errorf("invalid value")
	ErrUnknownTimezone = fmt.Errorf("unknown timezone")
)

// Policy is the per-team attendance configuration.
type Policy struct {
	ID                          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	TeamID                      string        `bson:"team_id" json:"team_id"`
	Timezone                    string        `bson:"timezone" json:"timezone"`
	WorkStartHour               int           `bson:"work_start_hour" json:"work_start_hour"`
	WorkdayDurationHours        int           `bson:"workday_duration_hours" json:"workday_duration_hours"`
	UpdateReminderIntervalHours int           `bson:"update_reminder_interval_hours" json:"update_reminder_interval_hours"`
	MaxBreakMinutes             int           `bson:"max_break_minutes" json:"max_break_minutes"`
	BreakReminderIntervalMins   int           `bson:"break_reminder_interval_minutes" json:"break_reminder_interval_minutes"`
	MaxBreakReminders           int           `bson:"max_break_reminders" json:"max_break_reminders"`
	EmployeeRoleName            string        `bson:"employee_role_name" json:"employee_role_name"`
	CreatedAt                   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt                   time.Time     `bson:"updated_at" json:"updated_at"`
}

// DefaultPolicy returns the settings a team gets on first access.
func DefaultPolicy(teamID string) *Policy {
	return &Policy{
		TeamID:                      teamID,
		Timezone:                    "Africa/Cairo",
		WorkStartHour:               9,
		WorkdayDurationHours:        9,
		UpdateReminderIntervalHours: 2,
		MaxBreakMinutes:             60,
		BreakReminderIntervalMins:   10,
		MaxBreakReminders:           3,
		EmployeeRoleName:            "employee",
	}
}

// Get returns the current value of a setting as a display string.
func (p *Policy) Get(key string) (string, error) {
	switch key {
	case SettingTimezone:
		return p.Timezone, nil
	case SettingWorkStartHour:
		return strconv.Itoa(p.WorkStartHour), nil
	case SettingWorkdayDurationHours:
		return strconv.Itoa(p.WorkdayDurationHours), nil
	case SettingUpdateReminderIntervalHrs:
		return strconv.Itoa(p.UpdateReminderIntervalHours), nil
	case SettingMaxBreakMinutes:
		return strconv.Itoa(p.MaxBreakMinutes), nil
	case SettingBreakReminderIntervalMins:
		return strconv.Itoa(p.BreakReminderIntervalMins), nil
	case SettingMaxBreakReminders:
		return strconv.Itoa(p.MaxBreakReminders), nil
	case SettingEmployeeRoleName:
		return p.EmployeeRoleName, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
}

// Set validates and applies one setting. Integer fields must parse, the
// timezone must be a resolvable IANA identifier, and the role name is
// stored verbatim.
func (p *Policy) Set(key, value string) error {
	switch key {
	case SettingTimezone:
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownTimezone, value)
		}
		p.Timezone = value
	case SettingWorkStartHour, SettingWorkdayDurationHours, SettingUpdateReminderIntervalHrs,
		SettingMaxBreakMinutes, SettingBreakReminderIntervalMins, SettingMaxBreakReminders:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w for %s: %q", ErrInvalidValue, key, value)
		}
		switch key {
		case SettingWorkStartHour:
			if n < 0 || n > 23 {
				return fmt.Errorf("%w for %s: %q", ErrInvalidValue, key, value)
			}
			p.WorkStartHour = n
		case SettingWorkdayDurationHours:
			p.WorkdayDurationHours = n
		case SettingUpdateReminderIntervalHrs:
			p.UpdateReminderIntervalHours = n
		case SettingMaxBreakMinutes:
			p.MaxBreakMinutes = n
		case SettingBreakReminderIntervalMins:
			p.BreakReminderIntervalMins = n
		case SettingMaxBreakReminders:
			p.MaxBreakReminders = n
		}
	case SettingEmployeeRoleName:
		p.EmployeeRoleName = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}
