package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/scry/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Start a local HTTP server exposing the recommendation engine and the
reviewed-papers store as a JSON API, for use by browser front ends or
editor integrations.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8765", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a := mustApp()
	a.checkProvider(cmd.Context())

	reviews, err := a.openReviews()
	if err != nil {
		exitWithError(ExitError, "opening reviewed store: %s", err)
	}
	defer reviews.Close()

	server := web.NewServer(web.Params{
		Engine:      a.engine,
		Reviews:     reviews,
		Collections: a.library,
		Logger:      &a.log,
	})

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	if !jsonOutput {
		fmt.Printf("Listening on http://%s\n", serveAddr)
	}
	a.log.Info().Str("addr", serveAddr).Msg("server started")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitWithError(ExitError, "server error: %s", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("shutdown did not complete cleanly")
		}
	}
	return nil
}
