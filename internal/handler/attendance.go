package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"workday-bot/internal/i18n"
	"workday-bot/internal/mattermost"
	"workday-bot/internal/service"
)

type AttendanceHandler struct {
	svc *service.AttendanceService
	mm  *mattermost.Client
}

func NewAttendanceHandler(svc *service.AttendanceService, mm *mattermost.Client) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, mm: mm}
}

// SlashResponse is the response to a slash command.
type SlashResponse struct {
	ResponseType string `json:"response_type"` // "ephemeral" or "in_channel"
	Text         string `json:"text,omitempty"`
}

// HandleSlashCommand handles the /attendance slash command:
// start, break, back, done, config [key] [value].
func (h *AttendanceHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	userID := r.FormValue("user_id")
	username := r.FormValue("user_name")
	teamID := r.FormValue("team_id")
	args := strings.Fields(r.FormValue("text"))

	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	ctx := r.Context()
	var (
		reply string
		err   error
	)
	switch sub {
	case "start":
		reply, err = h.svc.Start(ctx, userID, username, teamID)
	case "break":
		reply, err = h.svc.Break(ctx, userID, username, teamID)
	case "back":
		reply, err = h.svc.Back(ctx, userID, username, teamID)
	case "done":
		reply, err = h.svc.Done(ctx, userID, username, teamID)
	case "config":
		reply, err = h.handleConfig(r, userID, teamID, args[1:])
	default:
		reply = "Usage: `/attendance start | break | back | done | config [setting] [value]`"
	}

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user": userID, "team": teamID, "command": sub}).Error("command failed")
		writeJSON(w, SlashResponse{ResponseType: "ephemeral", Text: i18n.T(ctx, "error.store")})
		return
	}
	writeJSON(w, SlashResponse{ResponseType: "ephemeral", Text: reply})
}

func (h *AttendanceHandler) handleConfig(r *http.Request, userID, teamID string, args []string) (string, error) {
	key, value := "", ""
	if len(args) > 0 {
		key = args[0]
	}
	if len(args) > 1 {
		value = strings.Join(args[1:], " ")
	}

	// Changing settings is admin-only; reading them is not.
	if value != "" {
		user, err := h.mm.GetUser(userID)
		if err != nil {
			return "", err
		}
		if !user.HasRole("system_admin") && !user.HasRole("team_admin") {
			return "Only administrators can change settings.", nil
		}
	}

	return h.svc.Config(r.Context(), teamID, key, value)
}

// MessageWebhook is the Mattermost outgoing-webhook payload for channel
// messages, used to capture voluntary status updates.
type MessageWebhook struct {
	Token    string `json:"token"`
	TeamID   string `json:"team_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

// HandleMessage records a non-command channel message as a status update
// for users with a started workday.
func (h *AttendanceHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var msg MessageWebhook
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		msg = MessageWebhook{
			TeamID:   r.FormValue("team_id"),
			UserID:   r.FormValue("user_id"),
			UserName: r.FormValue("user_name"),
			Text:     r.FormValue("text"),
		}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.svc.RecordUpdate(r.Context(), msg.UserID, msg.TeamID, text); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user": msg.UserID, "team": msg.TeamID}).Error("record update failed")
	}
	w.WriteHeader(http.StatusOK)
}

// RegisterRoutes registers all attendance routes on the given mux.
func (h *AttendanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attendance", h.HandleSlashCommand)
	mux.HandleFunc("POST /api/messages", h.HandleMessage)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}
