package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarkoPoloResearchLab/teawallet/internal/consoleapi"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	flagEnvFile        = "env-file"
	flagListenAddr     = "listen-addr"
	flagWalletAddr     = "wallet-addr"
	flagWalletInsecure = "wallet-insecure"
	flagWalletTimeout  = "wallet-timeout"
	flagAllowedOrigins = "allowed-origins"
	flagJWTSigningKey  = "jwt-signing-key"
	flagJWTIssuer      = "jwt-issuer"
	flagJWTCookieName  = "jwt-cookie-name"
	envPrefix          = "CONSOLEAPI"
	defaultEnvFile     = ".env"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "consoleapi: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := consoleapi.Config{}
	cmd := &cobra.Command{
		Use:           "consoleapi",
		Short:         "HTTP API for the distributor console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("zap init: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			return consoleapi.Run(ctx, cfg, logger)
		},
	}

	cmd.Flags().String(flagEnvFile, defaultEnvFile, "optional dotenv file loaded before reading the environment")
	cmd.Flags().String(flagListenAddr, "", "HTTP listen address (default :9090)")
	cmd.Flags().String(flagWalletAddr, "", "walletd gRPC address (default localhost:7000)")
	cmd.Flags().Bool(flagWalletInsecure, false, "connect to walletd without TLS")
	cmd.Flags().Duration(flagWalletTimeout, 0, "walletd RPC timeout (default 3s)")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().String(flagJWTSigningKey, "", "TAuth JWT signing key (required)")
	cmd.Flags().String(flagJWTIssuer, "", "expected JWT issuer (default tauth)")
	cmd.Flags().String(flagJWTCookieName, "", "JWT cookie name (default app_session)")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *consoleapi.Config) error {
	envFile, err := cmd.Flags().GetString(flagEnvFile)
	if err != nil {
		return err
	}
	if envFile = strings.TrimSpace(envFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && (!errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed(flagEnvFile)) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagListenAddr, flagWalletAddr, flagWalletInsecure, flagWalletTimeout, flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagJWTCookieName} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.WalletAddress = strings.TrimSpace(v.GetString(flagWalletAddr))
	cfg.WalletInsecure = v.GetBool(flagWalletInsecure)
	cfg.WalletTimeout = v.GetDuration(flagWalletTimeout)
	cfg.AllowedOrigins = consoleapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins))
	cfg.SessionSigningKey = v.GetString(flagJWTSigningKey)
	cfg.SessionIssuer = strings.TrimSpace(v.GetString(flagJWTIssuer))
	cfg.SessionCookieName = strings.TrimSpace(v.GetString(flagJWTCookieName))

	return cfg.Validate()
}
