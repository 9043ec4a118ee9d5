package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reedfamily/bdspanel/internal/config"
	"github.com/reedfamily/bdspanel/internal/db"
	"github.com/reedfamily/bdspanel/internal/logging"
	"github.com/reedfamily/bdspanel/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.PanelLog)
	if err != nil {
		log.Fatalf("failed to open panel log: %v", err)
	}
	defer logFile.Close()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	srv, err := server.New(cfg, database)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	// Stop and restart requests wait for the game server to exit.
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("bdspanel listening on %s (%s, %s runtime)", cfg.ListenAddr, cfg.Game, cfg.Runtime)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer stopCancel()
	srv.Stop(stopCtx)
}
