package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/michaelgreenl/game-lobby/internal/auth"
	"github.com/michaelgreenl/game-lobby/internal/config"
	"github.com/michaelgreenl/game-lobby/internal/lobby"
	"github.com/michaelgreenl/game-lobby/internal/logging"
	"github.com/michaelgreenl/game-lobby/internal/store"
	"github.com/michaelgreenl/game-lobby/internal/ws"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	authSvc := auth.NewService(st, cfg.JWTSecret)
	engine := lobby.NewEngine(st, lobby.NewRegistry(),
		lobby.WithDisconnectGrace(cfg.DisconnectGrace),
		lobby.WithFinishedRetention(cfg.FinishedRetention),
	)
	wsServer := ws.NewServer(authSvc, engine, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(st, authSvc, wsServer),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
