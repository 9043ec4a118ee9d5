package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/reedfamily/bdspanel/internal/console"
)

type ConsoleHandler struct {
	server   GameServer
	commands *console.SQLCommandLog
}

func NewConsoleHandler(server GameServer, commands *console.SQLCommandLog) *ConsoleHandler {
	return &ConsoleHandler{server: server, commands: commands}
}

// Command relays one console command.
func (h *ConsoleHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	command := strings.TrimSpace(req.Command)
	if command == "" {
		writeError(w, http.StatusBadRequest, "command required")
		return
	}
	if strings.ContainsAny(command, "\r\n") {
		writeError(w, http.StatusBadRequest, "command must be a single line")
		return
	}
	if !h.server.Running() {
		writeError(w, http.StatusConflict, "server is not running")
		return
	}
	if err := h.server.RelayFrom("console", command); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"relayed": command})
}

// History lists recently relayed and dropped commands.
func (h *ConsoleHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}
	entries, err := h.commands.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query command log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Stream sends the console backlog and then live output over a WebSocket.
// Text messages from the client are relayed as commands.
func (h *ConsoleHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("api: console websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	hub := h.server.Hub()
	backlog, lines := hub.Attach()
	defer hub.Unsubscribe(lines)

	for _, line := range backlog {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			command := strings.TrimSpace(string(msg))
			if command == "" || strings.ContainsAny(command, "\r\n") {
				continue
			}
			if err := h.server.RelayFrom("console", command); err != nil {
				log.Printf("api: console relay: %v", err)
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
