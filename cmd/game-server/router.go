package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelgreenl/game-lobby/internal/auth"
	"github.com/michaelgreenl/game-lobby/internal/store"
	"github.com/michaelgreenl/game-lobby/internal/ws"
)

func newRouter(st *store.Store, authSvc *auth.Service, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiLogMiddleware())

	r.Get("/healthz", healthHandler(st))
	r.Post("/api/auth/register", registerHandler(authSvc))
	r.Post("/api/auth/login", loginHandler(authSvc))
	r.Get("/ws", wsServer.HandleWS)

	return r
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}
