package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"watchroom/internal/config"
	clog "watchroom/internal/log"
	"watchroom/internal/room"
	"watchroom/internal/server"
	"watchroom/internal/store"
	"watchroom/internal/ws"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemory()
		log.Info().Msg("using in-memory store")
	default:
		rs, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("store connect")
		}
		st = rs
		log.Info().Str("url", cfg.RedisURL).Msg("connected to redis")
	}
	defer st.Close()

	hub := ws.NewHub()
	coord := room.NewCoordinator(st, hub, cfg.ChatHistoryLimit)
	r := server.SetupRouter(cfg, coord)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
