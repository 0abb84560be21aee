package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"workday-bot/internal/model"
)

// PolicyStore persists per-team attendance policy. First access for a team
// materializes and stores the defaults. Every write goes straight through
// to Mongo before it is acknowledged.
type PolicyStore struct {
	policies *mongo.Collection
	locks    *keyLock
}

func NewPolicyStore(ctx context.Context, db *MongoDB) (*PolicyStore, error) {
	policies := db.Collection("policies")

	if _, err := policies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "team_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("create policy index: %w", err)
	}

	return &PolicyStore{policies: policies, locks: newKeyLock()}, nil
}

// Get returns the team's policy, creating and persisting the defaults on
// first access.
func (s *PolicyStore) Get(ctx context.Context, teamID string) (*model.Policy, error) {
	unlock := s.locks.Lock(teamID)
	defer unlock()
	return s.getLocked(ctx, teamID)
}

func (s *PolicyStore) getLocked(ctx context.Context, teamID string) (*model.Policy, error) {
	var doc policyDoc
	err := s.policies.FindOne(ctx, bson.M{"team_id": teamID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		p := model.DefaultPolicy(teamID)
		if err := s.save(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find policy: %w", err)
	}
	return doc.toPolicy(), nil
}

// SetSetting validates and applies one setting, persisting on success. The
// updated value is returned as a display string.
func (s *PolicyStore) SetSetting(ctx context.Context, teamID, key, value string) (string, error) {
	unlock := s.locks.Lock(teamID)
	defer unlock()

	p, err := s.getLocked(ctx, teamID)
	if err != nil {
		return "", err
	}
	if err := p.Set(key, value); err != nil {
		return "", err
	}
	if err := s.save(ctx, p); err != nil {
		return "", err
	}
	return p.Get(key)
}

func (s *PolicyStore) save(ctx context.Context, p *model.Policy) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.policies.ReplaceOne(ctx, bson.M{"team_id": p.TeamID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

// policyDoc mirrors model.Policy with pointer numeric fields for decoding.
// There is no schema versioning: a field absent from an older document
// decodes as nil and takes the default, while an explicitly configured
// zero (say, max_break_reminders=0 to silence nudges) stays zero.
type policyDoc struct {
	ID                          bson.ObjectID `bson:"_id,omitempty"`
	TeamID                      string        `bson:"team_id"`
	Timezone                    string        `bson:"timezone"`
	WorkStartHour               *int          `bson:"work_start_hour"`
	WorkdayDurationHours        *int          `bson:"workday_duration_hours"`
	UpdateReminderIntervalHours *int          `bson:"update_reminder_interval_hours"`
	MaxBreakMinutes             *int          `bson:"max_break_minutes"`
	BreakReminderIntervalMins   *int          `bson:"break_reminder_interval_minutes"`
	MaxBreakReminders           *int          `bson:"max_break_reminders"`
	EmployeeRoleName            string        `bson:"employee_role_name"`
	CreatedAt                   time.Time     `bson:"created_at"`
	UpdatedAt                   time.Time     `bson:"updated_at"`
}

func (d *policyDoc) toPolicy() *model.Policy {
	def := model.DefaultPolicy(d.TeamID)
	p := &model.Policy{
		ID:                          d.ID,
		TeamID:                      d.TeamID,
		Timezone:                    d.Timezone,
		WorkStartHour:               intOr(d.WorkStartHour, def.WorkStartHour),
		WorkdayDurationHours:        intOr(d.WorkdayDurationHours, def.WorkdayDurationHours),
		UpdateReminderIntervalHours: intOr(d.UpdateReminderIntervalHours, def.UpdateReminderIntervalHours),
		MaxBreakMinutes:             intOr(d.MaxBreakMinutes, def.MaxBreakMinutes),
		BreakReminderIntervalMins:   intOr(d.BreakReminderIntervalMins, def.BreakReminderIntervalMins),
		MaxBreakReminders:           intOr(d.MaxBreakReminders, def.MaxBreakReminders),
		EmployeeRoleName:            d.EmployeeRoleName,
		CreatedAt:                   d.CreatedAt,
		UpdatedAt:                   d.UpdatedAt,
	}
	if p.Timezone == "" {
		p.Timezone = def.Timezone
	}
	if p.EmployeeRoleName == "" {
		p.EmployeeRoleName = def.EmployeeRoleName
	}
	return p
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}
