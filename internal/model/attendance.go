package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// StatusUpdate is one voluntary status entry recorded during a workday.
type StatusUpdate struct {
	Time time.Time `bson:"time" json:"time"`
	Text string    `bson:"text" json:"text"`
}

// WorkdayRecord is the current day's attendance state for one user in one
// team. Records are created lazily, mutated by commands and sweeps, and
// reset in place at day rollover or completion. They are never deleted.
type WorkdayRecord struct {
	ID                 bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID             string         `bson:"user_id" json:"user_id"`
	TeamID             string         `bson:"team_id" json:"team_id"`
	WorkdayStarted     bool           `bson:"workday_started" json:"workday_started"`
	WorkdayStartTime   *time.Time     `bson:"workday_start_time,omitempty" json:"workday_start_time,omitempty"`
	WorkdayEndTime     *time.Time     `bson:"workday_end_time,omitempty" json:"workday_end_time,omitempty"`
	NextUpdateTime     *time.Time     `bson:"next_update_time,omitempty" json:"next_update_time,omitempty"`
	OnBreak            bool           `bson:"on_break" json:"on_break"`
	BreakStartTime     *time.Time     `bson:"break_start_time,omitempty" json:"break_start_time,omitempty"`
	TotalBreakMinutes  int            `bson:"total_break_minutes" json:"total_break_minutes"`
	BreakRemindersSent int            `bson:"break_reminders_sent" json:"break_reminders_sent"`
	DailyUpdates       []StatusUpdate `bson:"daily_updates" json:"daily_updates"`
	CreatedAt          time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `bson:"updated_at" json:"updated_at"`
}

// Reset clears the record back to the not-started state. The ID and key
// fields are kept so the document slot survives across days.
func (r *WorkdayRecord) Reset() {
	r.WorkdayStarted = false
	r.WorkdayStartTime = nil
	r.WorkdayEndTime = nil
	r.NextUpdateTime = nil
	r.OnBreak = false
	r.BreakStartTime = nil
	r.TotalBreakMinutes = 0
	r.BreakRemindersSent = 0
	r.DailyUpdates = nil
}

// DaySummary is the finalized end-of-day report handed to the log sink
// when a workday completes.
type DaySummary struct {
	UserID       string
	Date         string // YYYY-MM-DD, team-local
	StartTime    time.Time
	BreakMinutes int
	WorkHours    float64
	Updates      []StatusUpdate
}
