package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluescreen10/shopx"
	"github.com/bluescreen10/shopx/backend"
	"github.com/bluescreen10/shopx/config"
	"github.com/bluescreen10/shopx/storefront"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		port    string
		driver  string
		dsn     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}

			// flags win over the environment
			if port != "" {
				cfg.Port = port
			}
			if driver != "" {
				cfg.StoreDriver = driver
			}
			if dsn != "" {
				cfg.StoreDSN = dsn
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg.LogEnv)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (env PORT)")
	cmd.Flags().StringVar(&driver, "store", "", "store driver: memory, redis, sqlite, postgres, mysql, mongo (env STORE_DRIVER)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "store connection string (env STORE_DSN)")

	return cmd
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	defer close(done)

	st, err := openStore(ctx, cfg, logger, done)
	if err != nil {
		return err
	}
	defer st.close()

	events := shopx.NewSessionEvents(logger.Named("events"))
	clients := shopx.NewClients(st.store,
		shopx.WithQuota(cfg.ClientQuota),
		shopx.WithLifetime(cfg.Lifetime),
		shopx.WithSecure(cfg.CookieSecure),
		shopx.WithBroadcaster(st.broadcaster))

	if st.broadcaster != nil {
		go func() {
			if err := events.Listen(st.broadcaster, done); err != nil {
				logger.Error("storage change listener stopped", zap.Error(err))
			}
		}()
	}

	guard := shopx.NewGuard(events, shopx.WithGuardLogger(logger.Named("guard")))
	carts := shopx.NewCartRegistry(shopx.WithCartLogger(logger.Named("cart")))
	go carts.PeriodicCleanUp(time.Minute, 30*time.Minute, done)

	api := backend.New(cfg.BackendURL, backend.WithLogger(logger.Named("backend")))
	srv := storefront.New(api, clients, carts, guard, events, storefront.WithLogger(logger))
	go srv.PeriodicCleanUp(time.Minute, 15*time.Minute, done)

	// cancelled on shutdown so open event streams end
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", server.Addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("backend", cfg.BackendURL))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
