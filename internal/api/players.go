package api

import (
	"log"
	"net/http"

	"github.com/reedfamily/bdspanel/internal/admin"
	"github.com/reedfamily/bdspanel/internal/presence"
)

type PlayerHandler struct {
	server GameServer
}

func NewPlayerHandler(server GameServer) *PlayerHandler {
	return &PlayerHandler{server: server}
}

// List rescans the server log and returns the online players, sorted.
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	set, err := presence.Load(h.server.LogPath(), h.server.Adapter())
	if err != nil {
		log.Printf("api: load presence: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read server log")
		return
	}
	players := set.Sorted()
	writeJSON(w, http.StatusOK, map[string]any{"players": players, "count": len(players)})
}

// Command builds an admin command for the selected players and relays it.
func (h *PlayerHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req admin.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	commands, err := admin.Build(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.server.Running() {
		writeError(w, http.StatusConflict, "server is not running")
		return
	}
	for _, c := range commands {
		if err := h.server.RelayFrom("admin", c); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": commands})
}
