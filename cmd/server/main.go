package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"example.com/chess_session_server/internal/config"
	"example.com/chess_session_server/internal/httpapi"
	"example.com/chess_session_server/internal/script"
	"example.com/chess_session_server/internal/session"
	"example.com/chess_session_server/internal/store"
	"example.com/chess_session_server/internal/ws"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	log := newLogger(cfg.Debug)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	build := zap.NewProduction
	if debug {
		build = zap.NewDevelopment
	}
	l, err := build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var coordOpts []session.CoordinatorOption
	if cfg.HouseRules != "" {
		rules, err := script.Load(cfg.HouseRules)
		if err != nil {
			return err
		}
		defer rules.Close()
		coordOpts = append(coordOpts, session.WithHouseRules(rules))
		log.Info("house rules loaded", zap.String("path", cfg.HouseRules), zap.Bool("hook", rules.Defines()))
	}

	hub := ws.NewHub(ws.WithLogger(log.Named("hub")), ws.WithSendBuffer(cfg.SendBuffer))
	coord := session.NewCoordinator(hub, st, st, append(coordOpts,
		session.WithLogger(log.Named("session")),
		session.WithTimeout(cfg.CommandTimeout))...)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewEndpoint(hub, coord,
		ws.WithAllowedOrigins(cfg.AllowedOrigins),
		ws.WithWriteTimeout(cfg.WriteTimeout),
		ws.WithPingInterval(cfg.PingInterval),
		ws.WithEndpointLogger(log.Named("ws"))))
	httpapi.NewServer(st, st, log.Named("http")).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           cors(cfg.AllowedOrigins, mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.Stringer("config", cfg))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown; draining the
	// hub closes their outboxes so the writers hang up.
	hub.Drain()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info("using postgres store")
	return pg, nil
}

func cors(allow []string, next http.Handler) http.Handler {
	allowSet := map[string]struct{}{}
	for _, a := range allow {
		if a != "" {
			allowSet[a] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			if _, ok := allowSet[origin]; ok || len(allowSet) == 0 {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
