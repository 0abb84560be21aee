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

// WorkdayStore persists the current-day attendance record per
// (user, team) pair. All mutations run through Mutate, which serializes
// access per key and writes through to Mongo before acknowledging; a
// failed write leaves the stored record untouched.
type WorkdayStore struct {
	workdays *mongo.Collection
	locks    *keyLock
}

func NewWorkdayStore(ctx context.Context, db *MongoDB) (*WorkdayStore, error) {
	workdays := db.Collection("workdays")

	if _, err := workdays.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "team_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "team_id", Value: 1}}},
	}); err != nil {
		return nil, fmt.Errorf("create workday indexes: %w", err)
	}

	return &WorkdayStore{workdays: workdays, locks: newKeyLock()}, nil
}

func recordKey(userID, teamID string) string {
	return userID + ":" + teamID
}

// Get returns the record for the pair, creating and persisting the
// not-started default on first reference.
func (s *WorkdayStore) Get(ctx context.Context, userID, teamID string) (*model.WorkdayRecord, error) {
	unlock := s.locks.Lock(recordKey(userID, teamID))
	defer unlock()
	return s.getLocked(ctx, userID, teamID)
}

func (s *WorkdayStore) getLocked(ctx context.Context, userID, teamID string) (*model.WorkdayRecord, error) {
	var rec model.WorkdayRecord
	err := s.workdays.FindOne(ctx, bson.M{"user_id": userID, "team_id": teamID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		rec := &model.WorkdayRecord{UserID: userID, TeamID: teamID}
		if err := s.save(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find workday: %w", err)
	}
	return &rec, nil
}

// Mutate runs fn on the current record under the pair's lock and persists
// the result. fn sees a fresh copy loaded inside the critical section, so
// its view cannot be stale; if fn or the write fails, nothing is
// committed and the error is returned to the caller.
func (s *WorkdayStore) Mutate(ctx context.Context, userID, teamID string, fn func(*model.WorkdayRecord) error) error {
	unlock := s.locks.Lock(recordKey(userID, teamID))
	defer unlock()

	rec, err := s.getLocked(ctx, userID, teamID)
	if err != nil {
		return err
	}
	if err := fn(rec); err != nil {
		return err
	}
	return s.save(ctx, rec)
}

// Reset returns the pair's record to the not-started state.
func (s *WorkdayStore) Reset(ctx context.Context, userID, teamID string) error {
	return s.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		rec.Reset()
		return nil
	})
}

func (s *WorkdayStore) save(ctx context.Context, rec *model.WorkdayRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	_, err := s.workdays.ReplaceOne(ctx,
		bson.M{"user_id": rec.UserID, "team_id": rec.TeamID},
		rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save workday: %w", err)
	}
	return nil
}
