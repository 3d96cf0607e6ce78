package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dzoniops/rental-service/auth"
	"github.com/dzoniops/rental-service/cache"
	"github.com/dzoniops/rental-service/config"
	"github.com/dzoniops/rental-service/db"
	"github.com/dzoniops/rental-service/handlers"
	"github.com/dzoniops/rental-service/metrics"
	"github.com/dzoniops/rental-service/services"
	"github.com/dzoniops/rental-service/storage"
	"github.com/dzoniops/rental-service/tracing"
)

func serveCmd(logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(logger)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger log.Logger) error {
	shutdownTracing, err := tracing.Init(cfg.TraceStdout)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			level.Error(logger).Log("msg", "failed to stop tracer provider", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	users := db.NewUserStore(db.DB)
	properties := db.NewPropertyStore(db.DB)
	bookings := db.NewBookingStore(db.DB)
	creds := auth.NewCredentials(cfg.JWTSecret, cfg.JWTTTL, cfg.BcryptCost)

	images, err := storage.NewImageStore(
		cfg.UploadDir,
		"/uploads",
		cfg.MaxImageWidth,
		log.With(logger, "component", "storage"),
		storage.WithMaxPixels(cfg.MaxImagePixels),
	)
	if err != nil {
		return fmt.Errorf("init upload dir: %w", err)
	}

	var propertyCache services.PropertyCache
	if cfg.RedisAddr != "" {
		c := cache.New(cfg.RedisAddr, cfg.CacheTTL)
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			level.Warn(logger).Log("msg", "redis unreachable, reads fall through to the database", "addr", cfg.RedisAddr, "err", err)
		}
		propertyCache = c
	}

	srv := handlers.NewServer(handlers.Options{
		Accounts: services.NewAccountService(users, creds, log.With(logger, "component", "accounts"), cfg.AllowAdminSignup),
		Bookings: services.NewBookingService(
			properties,
			bookings,
			services.WithBookingLogger(log.With(logger, "component", "booking")),
			services.WithBookingMetrics(m),
			services.WithStrictTransitions(cfg.StrictTransitions),
		),
		Properties:  services.NewPropertyService(properties, images, propertyCache, log.With(logger, "component", "properties")),
		Resolver:    auth.NewResolver(creds, users),
		Logger:      log.With(logger, "component", "http"),
		Metrics:     m,
		Limiter:     handlers.NewRateLimiter(cfg.AuthRateLimit, int(cfg.AuthRateLimit)+1, 3*time.Minute),
		UploadDir:   images.Dir(),
		MaxUpload:   cfg.MaxUploadBytes(),
		CORSOrigins: cfg.CORSOrigins,
	})

	g := &run.Group{}

	apiSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Add(func() error {
		level.Info(logger).Log("msg", "starting API server", "addr", apiSrv.Addr)
		if err := apiSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiSrv.Shutdown(sctx); err != nil {
			level.Error(logger).Log("msg", "failed to stop API server", "err", err)
		}
	})

	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort}
	g.Add(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(
			reg,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
			},
		))
		metricsSrv.Handler = mux
		level.Info(logger).Log("msg", "starting metrics server", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		if err := metricsSrv.Close(); err != nil {
			level.Error(logger).Log("msg", "failed to stop metrics server", "err", err)
		}
	})

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		level.Info(logger).Log("msg", "shutting down", "signal", sig.Signal)
		return nil
	}
	return err
}

func createAdminCmd(logger log.Logger) *cobra.Command {
	var in services.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator or promote an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(logger)
			if err != nil {
				return err
			}
			creds := auth.NewCredentials(cfg.JWTSecret, cfg.JWTTTL, cfg.BcryptCost)
			accounts := services.NewAccountService(db.NewUserStore(db.DB), creds, logger, true)
			user, err := accounts.EnsureAdmin(cmd.Context(), in)
			if err != nil {
				return err
			}
			level.Info(logger).Log("msg", "administrator ready", "id", user.ID, "email", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
