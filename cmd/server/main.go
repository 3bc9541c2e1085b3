package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/patcharin/splitbill/internal/auth"
	"github.com/patcharin/splitbill/internal/scanning"
	"github.com/patcharin/splitbill/internal/server"
	"github.com/patcharin/splitbill/internal/service"
	"github.com/patcharin/splitbill/internal/storage/sqlite"
	"github.com/patcharin/splitbill/pkg/logging"
)

func main() {
	fs := ff.NewFlagSet("splitbill")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "./data/splitbill.db", "SQLite database file path")
		jwtSecret     = fs.StringLong("jwt-secret", "", "JWT signing secret (required)")
		tokenDuration = fs.DurationLong("token-duration", 24*time.Hour, "How long session tokens stay valid")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set SPLITBILL_GEMINI_KEY)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPLITBILL"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup()

	if *jwtSecret == "" {
		slog.Error("JWT secret is required. Set --jwt-secret flag or SPLITBILL_JWT_SECRET environment variable")
		os.Exit(1)
	}
	if *geminiKey == "" {
		slog.Error("Gemini API key is required. Set --gemini-key flag or SPLITBILL_GEMINI_KEY environment variable")
		os.Exit(1)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", *dbPath)

	scanner, err := scanning.NewGemini(*geminiKey, *geminiModel)
	if err != nil {
		slog.Error("Failed to initialize scanner", "error", err)
		os.Exit(1)
	}
	defer scanner.Close()
	slog.Info("Scanner initialized", "parser", scanner.Version())

	jwtManager := auth.NewJWTManager(*jwtSecret, *tokenDuration)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager)
	receiptSvc := service.NewReceiptService(store, scanner)
	selectionSvc := service.NewSelectionService(store)

	srv := server.New(authSvc, receiptSvc, selectionSvc, jwtManager)

	addr := fmt.Sprintf(":%d", *port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		slog.Info("Server starting", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
