/*
Package main is the entry point for the cluster chat server.

It is responsible for loading configuration, initializing the global logging system,
opening the database pool and the NATS bridge connection, clearing session state left
behind by an unclean prior shutdown, setting up the HTTP server, and gracefully
handling operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth
server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clusterchat/internal/app/bridge"
	"clusterchat/internal/app/chat"
	"clusterchat/internal/app/db"
	"clusterchat/internal/app/store"
	"clusterchat/internal/configs"
	"clusterchat/internal/handler"
	"clusterchat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The instance name tags every log line and the NATS connection.
	instance, err := os.Hostname()
	if err != nil {
		instance = "clusterchat"
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development", instance)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("nats_url", cfg.NatsURL).
		Bool("group_echo_sender", cfg.GroupEchoSender).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the database pool and run migrations
	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	users := store.NewUserStore(pool)
	friends := store.NewFriendStore(pool)
	groups := store.NewGroupStore(pool)
	offline := store.NewOfflineStore(pool)

	// The bridge and the service reference each other: subscriptions only
	// begin once a login is dispatched, so svc is assigned before the
	// first inbound callback can fire.
	var svc *chat.Service
	br, err := bridge.Connect(cfg.NatsURL, instance, func(ctx context.Context, userID int64, payload []byte) {
		svc.DeliverFromBridge(ctx, userID, payload)
	})
	if err != nil {
		logx.Fatal(err, "Failed to connect to NATS")
	}
	defer br.Close()

	svc = chat.NewService(chat.Deps{
		Users:   users,
		Friends: friends,
		Groups:  groups,
		Offline: offline,
		Bridge:  br,
	}, chat.Options{
		GroupEchoSender: cfg.GroupEchoSender,
	})

	// Clear stale online flags left by an unclean prior shutdown before
	// accepting any connection.
	if err := svc.Reset(ctx); err != nil {
		logx.Fatal(err, "Failed to reset persisted session states")
	}

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Service: svc,
		Config:  cfg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Cluster chat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
