package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/notionbot/internal/httpserver/deps"
	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

// group is one file's worth of ops routes.
type group struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var groups []group

// Register adds a named route group, called from init() in routes/*.go.
// mws wrap every route of the group.
func Register(name string, reg Registrar, mws ...Middleware) {
	groups = append(groups, group{name: name, reg: reg, mws: mws})
}

// RegisterAll mounts every group on r and logs the resulting routes.
// It is called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range groups {
		if len(g.mws) == 0 {
			g.reg(r, d)
		} else {
			g.reg(r.With(g.mws...), d)
		}
		if d.Logger != nil {
			d.Logger.Debug("route group mounted", logger.String("group", g.name))
		}
	}

	if d.Logger == nil {
		return
	}
	_ = chi.Walk(r, func(method, route string, _ http.Handler, mws ...func(http.Handler) http.Handler) error {
		d.Logger.Debug("ops route",
			logger.String("method", method),
			logger.String("route", route),
			logger.Int("middlewares", len(mws)))
		return nil
	})
}
