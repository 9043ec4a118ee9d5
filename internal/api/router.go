package api

import (
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Server    *ServerHandler
	Console   *ConsoleHandler
	Players   *PlayerHandler
	Catalog   *CatalogHandler
	Archives  *ArchiveHandler
	Schedules *ScheduleHandler
	Stats     *StatsHandler
}

// Routes mounts the /api/v1 routes on r.
func Routes(h Handlers) func(r chi.Router) {
	return func(r chi.Router) {
		r.Route("/server", func(r chi.Router) {
			r.Get("/", h.Server.Status)
			r.Post("/start", h.Server.Start)
			r.Post("/stop", h.Server.Stop)
			r.Post("/restart", h.Server.Restart)
			r.Post("/kill", h.Server.Kill)
		})

		r.Route("/console", func(r chi.Router) {
			r.Get("/", h.Console.Stream)
			r.Post("/command", h.Console.Command)
			r.Get("/commands", h.Console.History)
		})

		r.Get("/players", h.Players.List)
		r.Post("/players/commands", h.Players.Command)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/items", h.Catalog.Items)
			r.Get("/effects", h.Catalog.Effects)
			r.Get("/enchantments", h.Catalog.Enchantments)
			r.Get("/commands", h.Catalog.Commands)
		})

		r.Route("/archives", func(r chi.Router) {
			r.Get("/", h.Archives.List)
			r.Post("/", h.Archives.Create)
			r.Get("/{archiveId}/download", h.Archives.Download)
			r.Delete("/{archiveId}", h.Archives.Delete)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.Schedules.List)
			r.Post("/", h.Schedules.Create)
			r.Put("/{scheduleId}", h.Schedules.Update)
			r.Delete("/{scheduleId}", h.Schedules.Delete)
		})

		r.Get("/stats", h.Stats.Latest)
		r.Get("/stats/history", h.Stats.History)
		r.Get("/stats/live", h.Stats.Live)
	}
}
