// Package main runs the in-memory quiz backend for local development of the
// client. It seeds a demo account and a sample quiz.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/QuizDesk/internal/logger"
	"github.com/atinyakov/QuizDesk/internal/testserver"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	addr := flag.String("a", cmp.Or(os.Getenv("SERVER_ADDRESS"), "localhost:8000"), "run on ip:port server")
	level := flag.String("log-level", "Info", "log level")
	certFile := flag.String("cert", "", "server certificate (PEM); serves HTTPS with -key")
	keyFile := flag.String("key", "", "server private key (PEM)")
	flag.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(*level); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	backend := testserver.New(zapLogger)
	backend.AddUser("demo", "demo@example.com", "demo")
	quiz := backend.AddQuiz("Go fundamentals", "A short warm-up",
		testserver.QuestionSpec{Text: "What is the zero value of a map?", Choices: []string{"nil", "an empty map", "0"}, Correct: 0},
		testserver.QuestionSpec{Text: "Which keyword starts a goroutine?", Choices: []string{"async", "go", "spawn"}, Correct: 1},
		testserver.QuestionSpec{Text: "What does defer run on?", Choices: []string{"block exit", "function return", "panic only"}, Correct: 1},
	)
	zapLogger.Info("seeded demo data", zap.String("user", "demo"), zap.String("quiz_id", quiz.ID))

	server := &http.Server{
		Addr:              *addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var err error
	if *certFile != "" && *keyFile != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		zapLogger.Info("starting HTTPS server", zap.String("addr", *addr))
		err = server.ListenAndServeTLS(*certFile, *keyFile)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", *addr))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}
