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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/pricescout/api"
	"github.com/aluiziolira/pricescout/config"
)

const shutdownTimeout = 5 * time.Second

func runServe(args []string) error {
	fs, common := newFlagSet("serve")
	addr := fs.String("addr", "", "HTTP listen address (config default when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, func(cfg *config.Config) {
		if *addr != "" {
			cfg.ListenAddr = *addr
		}
	})
	if err != nil {
		return err
	}
	defer closeApp(a)

	if !a.cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr: a.cfg.ListenAddr,
		Handler: api.NewRouter(a.services(), api.Options{
			CORSOrigin:     a.cfg.CORSOrigin,
			MetricsEnabled: a.cfg.MetricsEnabled,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("http api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		purgeExpired(gctx, a, a.cfg.CacheTTL)
		return nil
	})

	return group.Wait()
}

// purgeExpired drops expired cache entries every interval until ctx ends.
func purgeExpired(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.cache.ClearExpired()
			if err != nil {
				slog.Error("purge expired cache entries", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				slog.Info("expired cache entries purged", slog.Int("removed", removed))
			}
		}
	}
}
