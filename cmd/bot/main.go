package main

import (
	"os"
	"os/signal"
	"syscall"

	"cheque-bot/internal/app"
	"cheque-bot/internal/handler"
	"cheque-bot/internal/handler/mcp"
	"cheque-bot/internal/handler/telegram"
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

	if err := cfg.ValidateBot(); err != nil {
		log.Fatal("Invalid bot config", zap.Error(err))
	}

	// Initialize storage
	store := storage.NewJSONStorage(cfg.DataDir)
	if _, err := store.Load(); err != nil {
		log.Fatal("Failed to load storage", zap.Error(err))
	}

	redeemUsecase, err := app.NewRedeemUsecase(cfg, store, log)
	if err != nil {
		log.Fatal("Failed to initialize redeem usecase", zap.Error(err))
	}

	// MCP over HTTP runs next to the bot
	mcpServer, err := mcp.NewServer(redeemUsecase, version, log)
	if err != nil {
		log.Fatal("Failed to create MCP server", zap.Error(err))
	}
	mcpHTTP := mcp.NewHTTPServer(mcpServer, store, cfg.MCPAPIKeys, cfg.MCPHTTPPort, log)
	if err := mcpHTTP.Start(); err != nil {
		log.Error("[MCP HTTP] Failed to start", zap.Error(err))
	} else {
		log.Info("[MCP HTTP] Tools available", zap.String("url", "http://localhost:"+mcpHTTP.GetPort()+"/mcp"))
	}

	var botHandler handler.BotHandler = telegram.NewBot(redeemUsecase, cfg.TelegramBotToken, cfg.AllowedUsers, store, log)

	go func() {
		log.Info("Starting Telegram bot...")
		if err := botHandler.Start(); err != nil {
			log.Fatal("Bot error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Bot and MCP HTTP server are running. Press Ctrl+C to stop.")
	<-sigChan

	log.Info("Shutting down...")

	if mcpHTTP.IsRunning() {
		if err := mcpHTTP.Stop(); err != nil {
			log.Warn("Error stopping MCP HTTP server", zap.Error(err))
		}
	}

	if err := botHandler.Stop(); err != nil {
		log.Warn("Error stopping bot", zap.Error(err))
	}

	log.Info("Bot stopped.")
}
