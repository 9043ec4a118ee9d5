package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/reedfamily/bdspanel/internal/console"
	"github.com/reedfamily/bdspanel/internal/game"
	"github.com/reedfamily/bdspanel/internal/history"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GameServer is the console session as the handlers see it.
type GameServer interface {
	Status() console.Status
	Running() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*history.Archive, error)
	Restart(ctx context.Context) error
	Kill(ctx context.Context) (*history.Archive, error)
	RelayFrom(source, command string) error
	Hub() *console.Hub
	Adapter() game.GameAdapter
	LogPath() string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}
