// cmd/server/main.go
package main

import (
	"context"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/mkrivenko/pokerroom/internal/auth"
	"github.com/mkrivenko/pokerroom/internal/config"
	"github.com/mkrivenko/pokerroom/internal/engine"
	"github.com/mkrivenko/pokerroom/internal/handlers"
	"github.com/mkrivenko/pokerroom/internal/identity"
	"github.com/mkrivenko/pokerroom/internal/journal"
	"github.com/mkrivenko/pokerroom/internal/middleware"
	"github.com/mkrivenko/pokerroom/internal/room"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.Load()

	if err := auth.Init(); err != nil {
		logger.Fatalf("init auth: %v", err)
	}

	ctx := context.Background()
	eng, err := engine.NewPG(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer eng.Close()

	var jr *journal.Journal
	if cfg.RedisAddr != "" {
		jr, err = journal.Connect(logger, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Warnf("event journal unavailable, continuing without it: %v", err)
			jr = nil
		}
	}

	users := identity.NewPG(eng.Pool())
	hub := room.NewHub(logger, cfg.Coordinator, eng, jr)
	srv := handlers.NewServer(logger, hub, eng, users)

	mux := http.NewServeMux()
	srv.Routes(mux)

	logger.Infof("running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, middleware.Logging(logger)(mux)); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
