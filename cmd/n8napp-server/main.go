package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"n8napp/internal/config"
	"n8napp/internal/dashboard"
	"n8napp/internal/logging"
	"n8napp/internal/mcp"
	"n8napp/internal/n8n"
	"n8napp/internal/session"
	"n8napp/internal/store"
)

// n8napp-server exposes one dashboard session over HTTP.
//
// Endpoints:
// - GET  /healthz
// - POST /mcp   (JSON-RPC tool calls)
//
// N8NAPP_BACKEND picks where the session lives: memory (default), redis
// (REDIS_ADDR) or postgres (DATABASE_URL).
func main() {
	var addr string
	flag.StringVar(&addr, "addr", "", "listen address (default :$PORT or :8080)")
	flag.Parse()

	if addr == "" {
		if p := os.Getenv("PORT"); p != "" {
			addr = ":" + p
		} else {
			addr = ":8080"
		}
	}

	cfg := config.Default()
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("n8napp-server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var backend session.Backend
	switch cfg.Session.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		backend = session.NewRedisBackend(rdb, cfg.Session.RedisPrefix, cfg.Session.ID, cfg.Session.TTL)
	case config.BackendPostgres:
		st, err := store.Open(ctx, cfg.Session.DSN)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer st.Close()
		backend = st.Sessions(cfg.Session.ID, cfg.Session.TTL)
	}

	sessions := session.New(backend)
	if cfg.HasCredential() {
		if err := sessions.Save(ctx, cfg.Credential()); err != nil {
			log.Fatal("save credential", zap.Error(err))
		}
	}
	dash := dashboard.New(sessions, n8n.NewClient(sessions, n8n.WithLogger(log.Named("api"))), log.Named("dashboard"))
	if err := dash.Start(ctx); err != nil {
		log.Warn("restore session", zap.Error(err))
	}

	srv := mcp.NewServer(mcp.ServerOptions{Dashboard: dash, Log: log.Named("mcp")})

	log.Info("listening", zap.String("addr", addr), logging.Session(cfg.Session.ID))
	if err := http.ListenAndServe(addr, mcp.Handler(srv)); err != nil {
		log.Error("serve", zap.Error(err))
		os.Exit(1)
	}
}
