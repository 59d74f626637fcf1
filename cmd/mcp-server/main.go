package main

import (
	"cheque-bot/internal/app"
	"cheque-bot/internal/handler/mcp"
	"cheque-bot/pkg/config"
	"cheque-bot/pkg/logger"
	"cheque-bot/pkg/storage"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// stdout carries the protocol, so logs go to stderr
	log, err := logger.Stderr(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	store := storage.NewJSONStorage(cfg.DataDir)

	redeemUsecase, err := app.NewRedeemUsecase(cfg, store, log)
	if err != nil {
		log.Fatal("Failed to initialize redeem usecase", zap.Error(err))
	}

	s, err := mcp.NewServer(redeemUsecase, version, log)
	if err != nil {
		log.Fatal("Failed to create MCP server", zap.Error(err))
	}

	if err := server.ServeStdio(s); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
