package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday-bot/internal/clock"
	"workday-bot/internal/i18n"
	"workday-bot/internal/mattermost"
	"workday-bot/internal/model"
	"workday-bot/internal/notify"
	"workday-bot/internal/service"
)

func TestMain(m *testing.M) {
	i18n.Init("en")
	m.Run()
}

type fakePolicyStore struct {
	policy *model.Policy
}

func (f *fakePolicyStore) Get(_ context.Context, teamID string) (*model.Policy, error) {
	p := *f.policy
	p.TeamID = teamID
	return &p, nil
}

func (f *fakePolicyStore) SetSetting(_ context.Context, _, key, value string) (string, error) {
	if err := f.policy.Set(key, value); err != nil {
		return "", err
	}
	return f.policy.Get(key)
}

type fakeWorkdayStore struct {
	mu   sync.Mutex
	recs map[string]*model.WorkdayRecord
}

func (f *fakeWorkdayStore) record(userID, teamID string) *model.WorkdayRecord {
	key := userID + ":" + teamID
	rec, ok := f.recs[key]
	if !ok {
		rec = &model.WorkdayRecord{UserID: userID, TeamID: teamID}
		f.recs[key] = rec
	}
	return rec
}

func (f *fakeWorkdayStore) Get(_ context.Context, userID, teamID string) (*model.WorkdayRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.record(userID, teamID)
	return &cp, nil
}

func (f *fakeWorkdayStore) Mutate(_ context.Context, userID, teamID string, fn func(*model.WorkdayRecord) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.record(userID, teamID)
	if err := fn(&cp); err != nil {
		return err
	}
	f.recs[userID+":"+teamID] = &cp
	return nil
}

func (f *fakeWorkdayStore) Reset(ctx context.Context, userID, teamID string) error {
	return f.Mutate(ctx, userID, teamID, func(rec *model.WorkdayRecord) error {
		rec.Reset()
		return nil
	})
}

type fakeRoster struct{}

func (fakeRoster) Teams() ([]string, error)                           { return []string{"team1"}, nil }
func (fakeRoster) TrackedMembers(string, string) ([]notify.Member, error) { return nil, nil }
func (fakeRoster) IsTrackedMember(string, string, string) (bool, error)   { return true, nil }

type nopNotifier struct{}

func (nopNotifier) DirectMessage(string, string) error { return nil }
func (nopNotifier) Broadcast(string, string) error     { return nil }
func (nopNotifier) LogEvent(string, string) error      { return nil }

func testHandler(t *testing.T, adminRoles string) *AttendanceHandler {
	t.Helper()

	mmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/v4/users/") {
			json.NewEncoder(w).Encode(mattermost.User{ID: "u1", Username: "alice", Roles: adminRoles})
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(mmSrv.Close)

	policy := model.DefaultPolicy("team1")
	policy.Timezone = "UTC"
	svc := service.NewAttendanceService(
		&fakePolicyStore{policy: policy},
		&fakeWorkdayStore{recs: make(map[string]*model.WorkdayRecord)},
		nopNotifier{},
		fakeRoster{},
		&clock.Fixed{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	)
	return NewAttendanceHandler(svc, mattermost.NewClient(mmSrv.URL, "token"))
}

func postSlash(t *testing.T, h *AttendanceHandler, text string) SlashResponse {
	t.Helper()

	form := url.Values{
		"user_id":   {"u1"},
		"user_name": {"alice"},
		"team_id":   {"team1"},
		"text":      {text},
	}
	req := httptest.NewRequest("POST", "/api/attendance", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.HandleSlashCommand(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SlashResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ephemeral", resp.ResponseType)
	return resp
}

func TestSlashCommandStart(t *testing.T) {
	h := testHandler(t, "system_user")

	resp := postSlash(t, h, "start")
	assert.Contains(t, resp.Text, "Workday started")

	resp = postSlash(t, h, "start")
	assert.Contains(t, resp.Text, "already started")
}

func TestSlashCommandUnknownSubcommandShowsUsage(t *testing.T) {
	h := testHandler(t, "system_user")

	resp := postSlash(t, h, "lunch")
	assert.Contains(t, resp.Text, "Usage:")
}

func TestSlashCommandConfigReadOpenToEveryone(t *testing.T) {
	h := testHandler(t, "system_user")

	resp := postSlash(t, h, "config")
	assert.Contains(t, resp.Text, "Current Server Configuration")

	resp = postSlash(t, h, "config max_break_minutes")
	assert.Contains(t, resp.Text, "60")
}

func TestSlashCommandConfigWriteIsAdminOnly(t *testing.T) {
	h := testHandler(t, "system_user")
	resp := postSlash(t, h, "config max_break_minutes 90")
	assert.Contains(t, resp.Text, "Only administrators")

	h = testHandler(t, "system_admin system_user")
	resp = postSlash(t, h, "config max_break_minutes 90")
	assert.Contains(t, resp.Text, "90")
}

func TestMessageWebhookRecordsUpdate(t *testing.T) {
	h := testHandler(t, "system_user")
	postSlash(t, h, "start")

	form := url.Values{
		"user_id":   {"u1"},
		"user_name": {"alice"},
		"team_id":   {"team1"},
		"text":      {"working on the rollout"},
	}
	req := httptest.NewRequest("POST", "/api/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Slash-style text is not captured as an update.
	form.Set("text", "/attendance done")
	req = httptest.NewRequest("POST", "/api/messages", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
