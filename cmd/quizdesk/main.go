// Package main wires configuration, logging, the token store and the API
// client into the interactive QuizDesk shell.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atinyakov/QuizDesk/internal/client/api"
	"github.com/atinyakov/QuizDesk/internal/client/storage"
	"github.com/atinyakov/QuizDesk/internal/config"
	"github.com/atinyakov/QuizDesk/internal/logger"
	"github.com/atinyakov/QuizDesk/internal/shell"
)

const defaultDatabaseFile = "quizdesk.db"

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quizdesk:", err)
		os.Exit(1)
	}
}

func run() error {
	options, err := config.Parse(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	if options.Version {
		fmt.Printf("QuizDesk\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return nil
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zapLogger := log.Log

	store, closeStore, err := openStore(options)
	if err != nil {
		return err
	}
	defer closeStore()

	httpClient, err := api.NewHTTPClient(options.CAFile, options.Timeout)
	if err != nil {
		return err
	}

	client, err := api.New(options.APIURL, store,
		api.WithHTTPClient(httpClient),
		api.WithLogger(zapLogger),
	)
	if err != nil {
		return err
	}
	zapLogger.Debug("client ready",
		zap.String("api_url", client.BaseURL()),
		zap.String("token_store", options.TokenStore),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = shell.New(client, zapLogger).Run(ctx, os.Stdin, os.Stdout)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// openStore picks the credential store named in the configuration.
func openStore(options *config.Options) (storage.TokenStore, func(), error) {
	switch options.TokenStore {
	case config.StoreSQLite:
		s, err := storage.OpenSQLite(cmp.Or(options.TokenPath, defaultDatabaseFile))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return storage.NewFileStore(options.TokenPath), func() {}, nil
	}
}
