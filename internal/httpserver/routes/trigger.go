package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/notionbot/internal/httpserver/deps"
	"github.com/MrSnakeDoc/notionbot/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/notionbot/internal/httpserver/mw"
)

func init() { Register("triggers", registerTriggers) }

func registerTriggers(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Post("/reap", handlers.Reap(d))
		r.Post("/reload", handlers.ReloadSchema(d))
	})
}
