package api

import (
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/reedfamily/bdspanel/internal/history"
)

type ArchiveHandler struct {
	archives *history.Service
	server   GameServer
}

func NewArchiveHandler(archives *history.Service, server GameServer) *ArchiveHandler {
	return &ArchiveHandler{archives: archives, server: server}
}

func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	archives, err := h.archives.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	writeJSON(w, http.StatusOK, archives)
}

// Create archives the live log. The server must be stopped first.
func (h *ArchiveHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.server.Running() {
		writeError(w, http.StatusConflict, "stop the server before archiving its log")
		return
	}
	a, err := h.archives.Archive(h.server.LogPath())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to archive log: "+err.Error())
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "no server log to archive")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *ArchiveHandler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.archives.FilePath(chi.URLParam(r, "archiveId"))
	if err != nil {
		writeArchiveError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (h *ArchiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.archives.Delete(chi.URLParam(r, "archiveId")); err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "archive deleted"})
}

func writeArchiveError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
