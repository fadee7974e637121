package consoleapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	walletv1 "github.com/MarkoPoloResearchLab/teawallet/api/wallet/v1"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprometheus "github.com/slok/go-http-metrics/metrics/prometheus"
	metricsmiddleware "github.com/slok/go-http-metrics/middleware"
	ginmetrics "github.com/slok/go-http-metrics/middleware/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

const claimsContextKey = "auth_claims"

// Run serves the console API until ctx ends.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialOptions := []grpc.DialOption{}
	if cfg.WalletInsecure {
		dialOptions = append(dialOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		dialOptions = append(dialOptions, grpc.WithTransportCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	conn, err := grpc.NewClient(cfg.WalletAddress, dialOptions...)
	if err != nil {
		return fmt.Errorf("connect walletd: %w", err)
	}
	conn.Connect()
	readyCtx, readyCancel := context.WithTimeout(ctx, cfg.WalletTimeout)
	defer readyCancel()
	if err := waitForClientReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return fmt.Errorf("connect walletd: %w", err)
	}
	defer conn.Close()

	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: []byte(cfg.SessionSigningKey),
		Issuer:     cfg.SessionIssuer,
		CookieName: cfg.SessionCookieName,
	})
	if err != nil {
		return fmt.Errorf("session validator: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	handler := &httpHandler{
		logger:       logger,
		walletClient: walletv1.NewWalletServiceClient(conn),
		cfg:          cfg,
	}
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           setupRouter(cfg, handler, validator, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("consoleapi listening", zap.String("addr", cfg.ListenAddr), zap.String("wallet_addr", cfg.WalletAddress))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler, validator *sessionvalidator.Validator, registry *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", idempotencyKeyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	metrics := metricsmiddleware.New(metricsmiddleware.Config{
		Recorder: metricsprometheus.NewRecorder(metricsprometheus.Config{Registry: registry}),
	})

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(validator.GinMiddleware(claimsContextKey))

	api.GET("/wallet", ginmetrics.Handler("/api/wallet", metrics), handler.handleOwnWallet)
	api.GET("/team/wallets", ginmetrics.Handler("/api/team/wallets", metrics), handler.handleTeamWallets)
	api.GET("/team/stats", ginmetrics.Handler("/api/team/stats", metrics), handler.handleTeamStats)
	api.GET("/team/wallets/:owner_type/:owner_id", ginmetrics.Handler("/api/team/wallets/:owner_type/:owner_id", metrics), handler.handleTeamWallet)
	api.GET("/team/wallets/:owner_type/:owner_id/collections", ginmetrics.Handler("/api/team/wallets/:owner_type/:owner_id/collections", metrics), handler.handleFieldCollections)
	api.POST("/collections", ginmetrics.Handler("/api/collections", metrics), handler.handleCollect)
	api.GET("/transactions", ginmetrics.Handler("/api/transactions", metrics), handler.handleTransactions)

	return router
}

func waitForClientReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if state == connectivity.Shutdown {
			return errors.New("grpc connection shutdown before ready")
		}
		if !conn.WaitForStateChange(ctx, state) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return errors.New("grpc connection failed to reach ready state")
		}
	}
}
