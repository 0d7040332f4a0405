package reportserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"promptopt/internal/logging"
)

// Config captures the settings for serving run reports.
type Config struct {
	Addr      string
	OutputDir string
	// HistoryPath is served as /data/history.duckdb when set.
	HistoryPath string
}

// Serve starts an HTTP server that hosts run reports until ctx is done.
func Serve(ctx context.Context, cfg Config, logger logging.Logger) error {
	if ctx == nil {
		return errors.New("reportserver: context is nil")
	}
	if cfg.Addr == "" {
		return errors.New("reportserver: addr is required")
	}
	handler, err := NewHandler(cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) || err == nil {
			return nil
		}
		return err
	}
}
