package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	walletv1 "github.com/MarkoPoloResearchLab/teawallet/api/wallet/v1"
	"github.com/MarkoPoloResearchLab/teawallet/internal/grpcserver"
	"github.com/MarkoPoloResearchLab/teawallet/internal/lock/redislock"
	"github.com/MarkoPoloResearchLab/teawallet/internal/observability"
	"github.com/MarkoPoloResearchLab/teawallet/pkg/wallet"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	flagEnvFile        = "env-file"
	flagDatabaseURL    = "database-url"
	flagDatabaseDriver = "database-driver"
	flagListenAddr     = "listen-addr"
	flagRedisURL       = "redis-url"
	flagLockTTL        = "lock-ttl"
	flagMetricsAddr    = "metrics-addr"
	flagLogFormat      = "log-format"
	envPrefix          = "WALLETD"

	defaultEnvFile        = ".env"
	defaultDatabaseURL    = "sqlite:///tmp/teawallet.db"
	defaultDatabaseDriver = driverGorm
	defaultGRPCListenAddr = ":7000"
	defaultLockTTL        = 10 * time.Second
	defaultLogFormat      = "json"
)

type runtimeConfig struct {
	DatabaseURL    string
	DatabaseDriver string
	ListenAddr     string
	RedisURL       string
	LockTTL        time.Duration
	MetricsAddr    string
	LogFormat      string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "walletd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "walletd",
		Short:         "Tea distributor wallet ledger gRPC server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagEnvFile, defaultEnvFile, "optional dotenv file loaded before reading the environment")
	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "sqlite:// or postgres:// connection string")
	cmd.Flags().String(flagDatabaseDriver, defaultDatabaseDriver, "store implementation: gorm or pgx (postgres only)")
	cmd.Flags().String(flagListenAddr, defaultGRPCListenAddr, "gRPC listen address")
	cmd.Flags().String(flagRedisURL, "", "redis URL; enables cross-process wallet locks")
	cmd.Flags().Duration(flagLockTTL, defaultLockTTL, "redis lock TTL")
	cmd.Flags().String(flagMetricsAddr, "", "prometheus listen address (disabled when empty)")
	cmd.Flags().String(flagLogFormat, defaultLogFormat, "log encoding: json or console")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	if err := loadEnvFile(cmd); err != nil {
		return err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagDatabaseURL, flagDatabaseDriver, flagListenAddr, flagRedisURL, flagLockTTL, flagMetricsAddr, flagLogFormat} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}
	if err := v.BindEnv(flagDatabaseURL, "WALLETD_DATABASE_URL", "DATABASE_URL"); err != nil {
		return err
	}
	if err := v.BindEnv(flagRedisURL, "WALLETD_REDIS_URL", "REDIS_URL"); err != nil {
		return err
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(v.GetString(flagDatabaseDriver)))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = defaultDatabaseDriver
	}
	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultGRPCListenAddr
	}
	cfg.RedisURL = strings.TrimSpace(v.GetString(flagRedisURL))
	cfg.LockTTL = v.GetDuration(flagLockTTL)
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	cfg.MetricsAddr = strings.TrimSpace(v.GetString(flagMetricsAddr))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(v.GetString(flagLogFormat)))
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}

	if cfg.DatabaseDriver != driverGorm && cfg.DatabaseDriver != driverPGX {
		return fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}
	return nil
}

// loadEnvFile reads the dotenv file when present. Only an explicitly named file
// must exist.
func loadEnvFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString(flagEnvFile)
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed(flagEnvFile) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, cleanup, err := openStore(ctx, cfg.DatabaseURL, cfg.DatabaseDriver)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() {
		if cleanupErr := cleanup(); cleanupErr != nil {
			logger.Warn("database close failed", zap.Error(cleanupErr))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("metrics init: %w", err)
	}

	options := []wallet.ServiceOption{
		wallet.WithOperationLogger(observability.NewFanout(observability.NewZapOperationLogger(logger), metrics)),
	}
	if cfg.RedisURL != "" {
		redisClient, err := redislock.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker, err := redislock.New(redisClient, redislock.WithTTL(cfg.LockTTL), redislock.WithLogger(logger))
		if err != nil {
			return err
		}
		options = append(options, wallet.WithLocker(locker))
		logger.Info("redis wallet locks enabled", zap.Duration("lock_ttl", cfg.LockTTL))
	}

	clock := func() time.Time { return time.Now().UTC() }
	walletService, err := wallet.NewService(store, clock, options...)
	if err != nil {
		return fmt.Errorf("wallet service init: %w", err)
	}

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", zap.String("metrics_addr", cfg.MetricsAddr))
			if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(serveErr))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	grpcServer := grpc.NewServer()
	walletv1.RegisterWalletServiceServer(grpcServer, grpcserver.NewWalletServiceServer(walletService, logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gRPC server starting", zap.String("listen_addr", cfg.ListenAddr), zap.String("database_driver", cfg.DatabaseDriver))
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
		grpcServer.GracefulStop()
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			return serveErr
		}
		return nil
	case serveErr := <-errCh:
		if errors.Is(serveErr, grpc.ErrServerStopped) {
			return nil
		}
		return serveErr
	}
}
