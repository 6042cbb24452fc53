package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kestrelsoft/glint/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the suggestion daemon with its HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	api := httpapi.NewServer(a.model, a.prefs, httpapi.WithLogger(a.logger.Named("http")))
	httpSrv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http api listening", zap.String("addr", a.cfg.Listen))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.refreshLoop(api, stop)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	case serveErr = <-errCh:
		a.logger.Error("http server failed", zap.Error(serveErr))
	}

	close(stop)
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	return serveErr
}

// refreshLoop drives fetch cycles. The first fetch right after startup runs
// with the post-login deadline; later ticks use the normal one. Intervals
// are jittered so restarted daemons do not synchronize against remote
// sources.
func (a *app) refreshLoop(api *httpapi.Server, stop <-chan struct{}) {
	a.model.RequestDataFetch(true, api.NotifyFetchComplete)

	base := time.Duration(a.cfg.Fetch.RefreshInterval)
	timer := time.NewTimer(jittered(base, a.cfg.Fetch.RefreshJitter))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			a.model.RequestDataFetch(false, api.NotifyFetchComplete)
			a.logger.Debug("refresh fetch triggered",
				zap.Time("cycle_start", a.model.LastFetchStart()),
				zap.Int("pending", a.model.PendingRequestCount()))
			timer.Reset(jittered(base, a.cfg.Fetch.RefreshJitter))
		case <-stop:
			return
		}
	}
}

// jittered spreads base by a random factor in [1-jitter, 1+jitter].
func jittered(base time.Duration, jitter float64) time.Duration {
	if base <= 0 || jitter <= 0 {
		return base
	}
	magnitude := rand.Float64() * jitter
	if rand.Intn(2) == 0 {
		magnitude = -magnitude
	}
	return time.Duration(float64(base) * (1 + magnitude))
}
