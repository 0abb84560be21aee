package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday-bot/internal/model"
)

func testPolicy() *model.Policy {
	return &model.Policy{
		TeamID:                      "team1",
		Timezone:                    "UTC",
		WorkStartHour:               9,
		WorkdayDurationHours:        9,
		UpdateReminderIntervalHours: 2,
		MaxBreakMinutes:             60,
		BreakReminderIntervalMins:   10,
		MaxBreakReminders:           3,
		EmployeeRoleName:            "employee",
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func newRecord() *model.WorkdayRecord {
	return &model.WorkdayRecord{UserID: "u1", TeamID: "team1"}
}

func TestBeginWorkdayOnTime(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	late, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, late)
	assert.True(t, rec.WorkdayStarted)
	assert.Equal(t, StateWorking, StateOf(rec))
	assert.Equal(t, at(18, 0), *rec.WorkdayEndTime)
	assert.Equal(t, at(11, 0), *rec.NextUpdateTime)
	assert.Equal(t, 9*time.Hour, rec.WorkdayEndTime.Sub(*rec.WorkdayStartTime))
}

func TestBeginWorkdayEarlyIsNotLate(t *testing.T) {
	rec := newRecord()

	late, err := BeginWorkday(rec, testPolicy(), at(8, 30))
	require.NoError(t, err)
	assert.Equal(t, 0, late)
}

func TestBeginWorkdayLate(t *testing.T) {
	rec := newRecord()

	late, err := BeginWorkday(rec, testPolicy(), at(9, 15))
	require.NoError(t, err)
	assert.Equal(t, 15, late)
	assert.Equal(t, at(18, 15), *rec.WorkdayEndTime)
	assert.Equal(t, at(11, 15), *rec.NextUpdateTime)
}

func TestBeginWorkdayTwiceRejected(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)

	_, err = BeginWorkday(rec, p, at(9, 5))
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestBeginBreakRequiresStartedWorkday(t *testing.T) {
	rec := newRecord()

	_, err := BeginBreak(rec, testPolicy(), at(10, 0))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestBeginBreakTwiceRejected(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)

	_, err = BeginBreak(rec, p, at(10, 5))
	assert.ErrorIs(t, err, ErrAlreadyOnBreak)
}

func TestBreakAllowanceBoundary(t *testing.T) {
	p := testPolicy()

	rec := newRecord()
	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)

	// One minute left: still allowed.
	rec.TotalBreakMinutes = 59
	remaining, err := BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	// Exactly at the ceiling: rejected.
	rec = newRecord()
	_, err = BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	rec.TotalBreakMinutes = 60
	_, err = BeginBreak(rec, p, at(10, 0))
	assert.ErrorIs(t, err, ErrBreakAllowanceExhausted)
}

func TestEndBreakAccountsMinutesAndShiftsEnd(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 15))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)

	minutes, remaining, err := EndBreak(rec, p, at(10, 25))
	require.NoError(t, err)
	assert.Equal(t, 25, minutes)
	assert.Equal(t, 35, remaining)
	assert.Equal(t, 25, rec.TotalBreakMinutes)
	assert.Equal(t, at(18, 40), *rec.WorkdayEndTime)
	assert.Equal(t, 0, rec.BreakRemindersSent)
	assert.False(t, rec.OnBreak)
	assert.Nil(t, rec.BreakStartTime)
}

func TestEndBreakImmediatelyIsFree(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	endBefore := *rec.WorkdayEndTime

	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)
	minutes, _, err := EndBreak(rec, p, at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)
	assert.Equal(t, endBefore, *rec.WorkdayEndTime)
	assert.Equal(t, 0, rec.TotalBreakMinutes)
}

func TestEndBreakClampsClockRegression(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)

	minutes, _, err := EndBreak(rec, p, at(9, 55))
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)
	assert.Equal(t, 0, rec.TotalBreakMinutes)
}

func TestEndBreakWithoutBreakRejected(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, _, err := EndBreak(rec, p, at(10, 0))
	assert.ErrorIs(t, err, ErrNotOnBreak)

	_, err = BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, _, err = EndBreak(rec, p, at(10, 0))
	assert.ErrorIs(t, err, ErrNotOnBreak)
}

func TestCompleteWorkday(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(12, 0))
	require.NoError(t, err)
	_, _, err = EndBreak(rec, p, at(12, 30))
	require.NoError(t, err)
	require.NoError(t, RecordUpdate(rec, at(11, 0), "finished the report"))

	summary, err := CompleteWorkday(rec, p, at(18, 0))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", summary.Date)
	assert.Equal(t, at(9, 0), summary.StartTime)
	assert.Equal(t, 30, summary.BreakMinutes)
	assert.InDelta(t, 8.5, summary.WorkHours, 0.001)
	require.Len(t, summary.Updates, 1)
	assert.Equal(t, "finished the report", summary.Updates[0].Text)

	// Completion resets in place.
	assert.Equal(t, StateNotStarted, StateOf(rec))
	assert.Zero(t, rec.TotalBreakMinutes)
	assert.Empty(t, rec.DailyUpdates)
}

func TestCompleteWorkdayWhileOnBreakRejected(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(15, 0))
	require.NoError(t, err)

	_, err = CompleteWorkday(rec, p, at(17, 0))
	assert.ErrorIs(t, err, ErrOnBreak)
}

func TestCompleteWorkdayNotStartedRejected(t *testing.T) {
	_, err := CompleteWorkday(newRecord(), testPolicy(), at(17, 0))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestRecordUpdateRequiresStartedWorkday(t *testing.T) {
	rec := newRecord()

	err := RecordUpdate(rec, at(10, 0), "standup notes")
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Empty(t, rec.DailyUpdates)
}

func TestRecordUpdateKeepsDeadline(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	deadline := *rec.NextUpdateTime

	require.NoError(t, RecordUpdate(rec, at(9, 30), "working on tickets"))
	require.NoError(t, RecordUpdate(rec, at(10, 0), "still at it"))

	assert.Equal(t, deadline, *rec.NextUpdateTime)
	assert.Len(t, rec.DailyUpdates, 2)
}

func TestDailyResetIdempotentAndEquivalentToFresh(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)
	require.NoError(t, RecordUpdate(rec, at(10, 30), "note"))

	ApplyDailyReset(rec)
	ApplyDailyReset(rec) // idempotent

	fresh := newRecord()
	_, err = BeginWorkday(fresh, p, at(9, 15))
	require.NoError(t, err)
	late, err := BeginWorkday(rec, p, at(9, 15))
	require.NoError(t, err)

	assert.Equal(t, 15, late)
	assert.Equal(t, fresh.WorkdayStartTime, rec.WorkdayStartTime)
	assert.Equal(t, fresh.WorkdayEndTime, rec.WorkdayEndTime)
	assert.Equal(t, fresh.NextUpdateTime, rec.NextUpdateTime)
	assert.Equal(t, fresh.TotalBreakMinutes, rec.TotalBreakMinutes)
	assert.Equal(t, fresh.BreakRemindersSent, rec.BreakRemindersSent)
	assert.Empty(t, rec.DailyUpdates)
}

func TestUpdateReminderDue(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	assert.False(t, UpdateReminderDue(rec, at(12, 0)))

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)

	assert.False(t, UpdateReminderDue(rec, at(10, 59)))
	assert.True(t, UpdateReminderDue(rec, at(11, 0)))
	assert.True(t, UpdateReminderDue(rec, at(11, 30)))

	AdvanceUpdateReminder(rec, p, at(11, 0))
	assert.False(t, UpdateReminderDue(rec, at(11, 0)))
	assert.Equal(t, at(13, 0), *rec.NextUpdateTime)
}

func TestBreakReminderSchedule(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)

	// Reminders fall due at 10:10, 10:20, 10:30, capped at three.
	assert.False(t, BreakReminderDue(rec, p, at(10, 9)))
	assert.True(t, BreakReminderDue(rec, p, at(10, 11)))

	rec.BreakRemindersSent = 1
	// Idempotent within a tick: the counter moved the boundary.
	assert.False(t, BreakReminderDue(rec, p, at(10, 11)))
	assert.True(t, BreakReminderDue(rec, p, at(10, 20)))

	rec.BreakRemindersSent = 3
	assert.False(t, BreakReminderDue(rec, p, at(12, 0)))
	assert.LessOrEqual(t, rec.BreakRemindersSent, p.MaxBreakReminders)
}

func TestBreakReminderCounterResetsOnReturnNotOnSecondBreak(t *testing.T) {
	rec := newRecord()
	p := testPolicy()

	_, err := BeginWorkday(rec, p, at(9, 0))
	require.NoError(t, err)
	_, err = BeginBreak(rec, p, at(10, 0))
	require.NoError(t, err)
	rec.BreakRemindersSent = 2

	_, _, err = EndBreak(rec, p, at(10, 25))
	require.NoError(t, err)
	assert.Equal(t, 0, rec.BreakRemindersSent)

	// Second break of the day starts a fresh reminder session.
	remaining, err := BeginBreak(rec, p, at(15, 0))
	require.NoError(t, err)
	assert.Equal(t, 35, remaining)
	assert.Equal(t, 0, rec.BreakRemindersSent)
	assert.False(t, BreakReminderDue(rec, p, at(15, 9)))
	assert.True(t, BreakReminderDue(rec, p, at(15, 10)))
}
