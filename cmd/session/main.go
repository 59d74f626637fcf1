package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cheque-bot/internal/app"
	"cheque-bot/pkg/config"
	"cheque-bot/pkg/logger"

	"go.uber.org/zap"
)

// Logs the Telegram account in once and stores the session file used by
// the other binaries.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.Stderr(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	redeemUsecase, err := app.NewRedeemUsecase(cfg, nil, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := bufio.NewReader(os.Stdin)
	prompt := func(ctx context.Context) (string, error) {
		fmt.Fprintf(os.Stderr, "Enter the login code sent to %s: ", cfg.PhoneNumber)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read code: %w", err)
		}
		return strings.TrimSpace(line), ctx.Err()
	}

	if err := redeemUsecase.CreateSession(ctx, prompt); err != nil {
		log.Fatal("Failed to create session", zap.Error(err))
	}
	fmt.Fprintf(os.Stderr, "Session saved to %s\n", cfg.SessionPath())
}
