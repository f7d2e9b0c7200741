package testupstream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okian/gamepulse/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Serve generates a dataset from cfg and serves it on addr until ctx ends.
func Serve(ctx context.Context, addr string, cfg Config, opts ...ServerOption) error {
	snapshot := Generate(cfg)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewServer(snapshot, opts...),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log := logger.Named("fake-gameplan")
	log.Info(ctx, "serving synthetic gameplan data",
		logger.String("addr", addr),
		logger.String("base_url", "http://"+addr+ResourcePrefix),
		logger.Any("records", snapshot.Counts()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info(ctx, "shutting down")
	return srv.Shutdown(shutdownCtx)
}
