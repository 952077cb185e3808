package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spicery/intent-tokenizer/internal/logging"
	"github.com/spicery/intent-tokenizer/internal/server"
	"github.com/spicery/intent-tokenizer/pkg/tokenizer"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tokenizer over HTTP",
		Long: `Serve starts the HTTP API:

  POST /api/v1/tokenize   {"message": "..."} or {"messages": [...]}
  POST /api/v1/split      {"message": "..."}
  GET  /api/v1/rules
  GET  /health
  GET  /metrics

Sending SIGHUP reloads the rules file; a file that fails to load leaves the
running rules in place.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("timeout", server.DefaultTimeout, "request timeout")
	cmd.Flags().Int64("max-body", server.DefaultMaxBodyBytes, "maximum request body size in bytes")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	if err := a.bind(cmd, "addr", "timeout", "max-body"); err != nil {
		return err
	}

	// Reloads recompile only the patterns that changed.
	cache, err := tokenizer.NewPatternCache(0)
	if err != nil {
		return err
	}
	tok, err := a.loadTokenizer(cache)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Addr:         a.v.GetString("addr"),
		Timeout:      a.v.GetDuration("timeout"),
		MaxBodyBytes: a.v.GetInt64("max-body"),
		Logger:       logging.FromContext(cmd.Context()),
	}, tok)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	for {
		select {
		case <-hup:
			// A failed reload is logged and counted; serving continues.
			_ = srv.Reload(func() (*tokenizer.Tokenizer, error) {
				return a.loadTokenizer(cache)
			})
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			return nil
		}
	}
}
