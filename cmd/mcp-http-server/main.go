package main

import (
	"os"
	"os/signal"
	"syscall"

	"cheque-bot/internal/app"
	"cheque-bot/internal/handler/mcp"
	"cheque-bot/pkg/config"
	"cheque-bot/pkg/logger"
	"cheque-bot/pkg/storage"

	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.MCPAPIKeys) == 0 {
		log.Warn("No API keys in MCP_API_KEYS, only keys from the data dir will be accepted")
		log.Warn("Generate a key with: openssl rand -hex 32")
	}

	store := storage.NewJSONStorage(cfg.DataDir)

	redeemUsecase, err := app.NewRedeemUsecase(cfg, store, log)
	if err != nil {
		log.Fatal("Failed to initialize redeem usecase", zap.Error(err))
	}

	mcpServer, err := mcp.NewServer(redeemUsecase, version, log)
	if err != nil {
		log.Fatal("Failed to create MCP server", zap.Error(err))
	}

	srv := mcp.NewHTTPServer(mcpServer, store, cfg.MCPAPIKeys, cfg.MCPHTTPPort, log)
	if err := srv.Start(); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := srv.Stop(); err != nil {
		log.Warn("Error stopping server", zap.Error(err))
	}
}
