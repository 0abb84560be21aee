package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"workday-bot/internal/clock"
	"workday-bot/internal/config"
	"workday-bot/internal/handler"
	"workday-bot/internal/i18n"
	"workday-bot/internal/mattermost"
	"workday-bot/internal/notify"
	"workday-bot/internal/service"
	"workday-bot/internal/store"
	"workday-bot/internal/sweep"
)

func main() {
	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	i18n.Init(cfg.DefaultLocale)

	// Connect to MongoDB
	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logrus.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	ctx := context.Background()
	policyStore, err := store.NewPolicyStore(ctx, db)
	if err != nil {
		logrus.Fatalf("Failed to init policy store: %v", err)
	}
	workdayStore, err := store.NewWorkdayStore(ctx, db)
	if err != nil {
		logrus.Fatalf("Failed to init workday store: %v", err)
	}

	// Mattermost collaborators
	mm := mattermost.NewClient(cfg.MattermostURL, cfg.BotToken)
	platform := notify.NewPlatform(mm, cfg.BroadcastChannels, cfg.LogChannel)
	clk := clock.Real{}

	// Services
	attendanceSvc := service.NewAttendanceService(policyStore, workdayStore, platform, platform, clk)

	// Background sweeps
	sweeper := sweep.New(policyStore, workdayStore, platform, platform, clk)
	if err := sweeper.Start(); err != nil {
		logrus.Fatalf("Failed to start sweeps: %v", err)
	}

	// Routes
	mux := http.NewServeMux()
	handler.NewAttendanceHandler(attendanceSvc, mm).RegisterRoutes(mux)

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Bot service started on :%s (env: %s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, let an in-flight sweep
	// tick finish, then close the store.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	sweeper.Stop()
}
