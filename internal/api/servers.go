package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/reedfamily/bdspanel/internal/console"
)

// stopTimeout bounds how long a request waits for the server to exit.
const stopTimeout = 60 * time.Second

type ServerHandler struct {
	server GameServer
}

func NewServerHandler(server GameServer) *ServerHandler {
	return &ServerHandler{server: server}
}

func (h *ServerHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.server.Status())
}

func (h *ServerHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.server.Start(r.Context()); err != nil {
		writeStartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.server.Status())
}

func (h *ServerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.server.Running() {
		writeError(w, http.StatusConflict, "server is not running")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()

	archive, err := h.server.Stop(ctx)
	if err != nil {
		if ctx.Err() != nil {
			writeError(w, http.StatusGatewayTimeout, "server did not exit in time")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": h.server.Status(), "archive": archive})
}

// Kill terminates the server without the stop command, for a server that no
// longer reads its console.
func (h *ServerHandler) Kill(w http.ResponseWriter, r *http.Request) {
	if !h.server.Running() {
		writeError(w, http.StatusConflict, "server is not running")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()

	archive, err := h.server.Kill(ctx)
	if err != nil {
		if ctx.Err() != nil {
			writeError(w, http.StatusGatewayTimeout, "server did not exit in time")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": h.server.Status(), "archive": archive})
}

func (h *ServerHandler) Restart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()

	if err := h.server.Restart(ctx); err != nil {
		if ctx.Err() != nil {
			writeError(w, http.StatusGatewayTimeout, "server did not exit in time")
			return
		}
		writeStartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.server.Status())
}

func writeStartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, console.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, console.ErrLaunch):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
