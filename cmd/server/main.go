// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/wfoster/partyhub/internal/auth"
	"github.com/wfoster/partyhub/internal/database"
	"github.com/wfoster/partyhub/internal/handlers"
	"github.com/wfoster/partyhub/internal/journal"
	"github.com/wfoster/partyhub/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	logrus.SetLevel(logger.GetLevel())

	if err := journal.Connect(); err != nil {
		logger.Warnf("journal disabled: %v", err)
	} else if journal.Enabled() {
		logger.Info("journal enabled")
	}

	ctx := context.Background()
	if err := database.Connect(ctx); err != nil {
		logger.Warnf("database unavailable, using embedded question bank: %v", err)
	}
	defer database.Close()
	bank := database.LoadQuestionBank(ctx)

	srv := handlers.NewGameServer(bank)

	mux := http.NewServeMux()

	// lobby REST control plane
	mux.Handle("/lobby/", middleware.LogMiddleware(logger)(handlers.LobbyHandler(srv)))
	mux.Handle("/lobby", middleware.LogMiddleware(logger)(handlers.LobbyHandler(srv)))

	// lobby websocket
	mux.Handle("/ws/lobby/", http.HandlerFunc(handlers.LobbyWSHandler(logger, srv)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
