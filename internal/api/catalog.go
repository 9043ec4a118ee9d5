package api

import (
	"errors"
	"net/http"

	"github.com/reedfamily/bdspanel/internal/admin"
	"github.com/reedfamily/bdspanel/internal/catalog"
)

type CatalogHandler struct {
	itemsPath string
}

func NewCatalogHandler(itemsPath string) *CatalogHandler {
	return &CatalogHandler{itemsPath: itemsPath}
}

// Items reads the catalog on every request so edits to the CSV show up
// without a restart.
func (h *CatalogHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := catalog.Load(h.itemsPath)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, catalog.Filter(items, r.URL.Query().Get("q")))
}

func (h *CatalogHandler) Effects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, admin.Effects())
}

func (h *CatalogHandler) Enchantments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, admin.Categories())
}

func (h *CatalogHandler) Commands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commands":  admin.Commands(),
		"gamemodes": admin.Gamemodes(),
	})
}
