package main

import (
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/teawallet/internal/consoleapi"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(test *testing.T) {
	test.Chdir(test.TempDir())

	cmd := newRootCommand()
	require.NoError(test, cmd.ParseFlags([]string{
		"--wallet-addr", "walletd:7000",
		"--wallet-insecure",
		"--wallet-timeout", "5s",
		"--allowed-origins", "http://console.local, http://localhost:8000",
		"--jwt-signing-key", "secret",
	}))
	cfg := consoleapi.Config{}
	require.NoError(test, loadConfig(cmd, &cfg))
	require.Equal(test, ":9090", cfg.ListenAddr)
	require.Equal(test, "walletd:7000", cfg.WalletAddress)
	require.True(test, cfg.WalletInsecure)
	require.Equal(test, 5*time.Second, cfg.WalletTimeout)
	require.Equal(test, []string{"http://console.local", "http://localhost:8000"}, cfg.AllowedOrigins)
	require.Equal(test, "tauth", cfg.SessionIssuer)
	require.Equal(test, "app_session", cfg.SessionCookieName)
}

func TestLoadConfigEnvironment(test *testing.T) {
	test.Chdir(test.TempDir())
	test.Setenv("CONSOLEAPI_JWT_SIGNING_KEY", "from-env")
	test.Setenv("CONSOLEAPI_LISTEN_ADDR", ":9191")

	cmd := newRootCommand()
	require.NoError(test, cmd.ParseFlags(nil))
	cfg := consoleapi.Config{}
	require.NoError(test, loadConfig(cmd, &cfg))
	require.Equal(test, "from-env", cfg.SessionSigningKey)
	require.Equal(test, ":9191", cfg.ListenAddr)
}

func TestLoadConfigRequiresSigningKey(test *testing.T) {
	test.Chdir(test.TempDir())
	test.Setenv("CONSOLEAPI_JWT_SIGNING_KEY", "")

	cmd := newRootCommand()
	require.NoError(test, cmd.ParseFlags(nil))
	cfg := consoleapi.Config{}
	require.Error(test, loadConfig(cmd, &cfg))
}
