package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/reedfamily/bdspanel/internal/api"
	"github.com/reedfamily/bdspanel/internal/config"
	"github.com/reedfamily/bdspanel/internal/console"
	"github.com/reedfamily/bdspanel/internal/docker"
	"github.com/reedfamily/bdspanel/internal/game"
	"github.com/reedfamily/bdspanel/internal/history"
	"github.com/reedfamily/bdspanel/internal/launcher"
	"github.com/reedfamily/bdspanel/internal/queue"
	"github.com/reedfamily/bdspanel/internal/scheduler"
	"github.com/reedfamily/bdspanel/internal/stats"

	// Register game adapters
	_ "github.com/reedfamily/bdspanel/internal/game/bedrock"
	_ "github.com/reedfamily/bdspanel/internal/game/java"
)

type Server struct {
	cfg       *config.Config
	db        *sql.DB
	router    chi.Router
	session   *console.Session
	poller    *queue.Poller
	sampler   *stats.Sampler
	scheduler *scheduler.Scheduler
	docker    *docker.Client
}

func New(cfg *config.Config, db *sql.DB) (*Server, error) {
	adapter, err := game.Lookup(cfg.Game)
	if err != nil {
		return nil, err
	}

	var (
		run          launcher.Launcher
		dockerClient *docker.Client
	)
	switch cfg.Runtime {
	case "docker":
		dockerClient, err = docker.NewClient()
		if err != nil {
			return nil, fmt.Errorf("docker client: %w", err)
		}
		run = &launcher.Container{
			Client:  dockerClient,
			Image:   cfg.DockerImage,
			Ports:   cfg.DockerPorts,
			DataDir: cfg.ServerDir,
			Memory:  cfg.DockerMemory,
		}
	default:
		run = &launcher.Exec{Path: cfg.ServerExecutable, Dir: cfg.ServerDir}
	}

	archives := history.NewService(db, cfg.HistoryDir)
	commands := console.NewSQLCommandLog(db)
	session := console.NewSession(console.Options{
		Launcher: run,
		Adapter:  adapter,
		LogPath:  cfg.LogFile,
		Archiver: archives,
		Commands: commands,
	})

	// Relay commands dropped into the queue file by the player list tool
	poller := queue.NewPoller(queue.Open(cfg.CommandFile), session, cfg.PollInterval)
	poller.Start()

	sampler := stats.NewSampler(db, session, cfg.SampleInterval)
	sampler.Start()

	sched := scheduler.New(db, session, archives)
	sched.Start()

	handlers := api.Handlers{
		Server:    api.NewServerHandler(session),
		Console:   api.NewConsoleHandler(session, commands),
		Players:   api.NewPlayerHandler(session),
		Catalog:   api.NewCatalogHandler(cfg.ItemCatalog),
		Archives:  api.NewArchiveHandler(archives, session),
		Schedules: api.NewScheduleHandler(sched),
		Stats:     api.NewStatsHandler(sampler),
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080", "http://192.168.1.*:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Route("/api/v1", api.Routes(handlers))

	// Serve frontend static files from web/dist if it exists
	if distDir := "web/dist"; dirExists(distDir) {
		fileServer := http.FileServer(http.Dir(distDir))
		r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Fall back to index.html for SPA routing
			path := distDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, distDir+"/index.html")
				return
			}
			fileServer.ServeHTTP(w, r)
		}))
		log.Println("Serving frontend from web/dist/")
	}

	return &Server{
		cfg:       cfg,
		db:        db,
		router:    r,
		session:   session,
		poller:    poller,
		sampler:   sampler,
		scheduler: sched,
		docker:    dockerClient,
	}, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// killTimeout bounds the wait for a killed game server to exit.
const killTimeout = 10 * time.Second

func (s *Server) killGameServer() {
	ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()
	if _, err := s.session.Kill(ctx); err != nil {
		log.Printf("server: kill game server: %v", err)
		return
	}
	log.Printf("server: game server killed after stop timeout")
}

func (s *Server) Router() chi.Router {
	return s.router
}

// Stop halts the background loops, then stops the game server and archives
// its log. ctx bounds the wait for the game server to exit; a server still
// running when it expires is killed.
func (s *Server) Stop(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	if s.sampler != nil {
		s.sampler.Stop()
	}
	if s.session != nil && s.session.Running() {
		if _, err := s.session.Stop(ctx); err != nil {
			log.Printf("server: stop game server: %v", err)
			if ctx.Err() != nil {
				s.killGameServer()
			}
		}
	}
	if s.docker != nil {
		s.docker.Close()
	}
}
