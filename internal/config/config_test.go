package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	resetEnv := func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_PORT")
		os.Unsetenv("DB_USER")
		os.Unsetenv("DB_PASSWORD")
		os.Unsetenv("DB_NAME")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("GATEWAY_BASE_URL")
		os.Unsetenv("GATEWAY_TIMEOUT")
	}
	resetEnv()
	defer resetEnv()

	// 1. Missing required variables -> fail
	if _, err := Load(); err == nil {
		t.Error("expected error when env vars are missing, got nil")
	}

	// 2. Partial env -> fail
	os.Setenv("DB_PASSWORD", "password")
	if _, err := Load(); err == nil {
		t.Error("expected error when GATEWAY_BASE_URL is missing, got nil")
	}

	// 3. Complete env -> success, defaults applied
	os.Setenv("GATEWAY_BASE_URL", "https://gateway.example.test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("expected default DBHost=localhost, got %s", cfg.DBHost)
	}
	if cfg.GatewayTimeout != defaultGatewayTimeout {
		t.Errorf("expected default gateway timeout, got %s", cfg.GatewayTimeout)
	}

	// 4. Invalid timeout format -> fail
	os.Setenv("GATEWAY_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid GATEWAY_TIMEOUT, got nil")
	}

	// 5. Explicit timeout -> parsed
	os.Setenv("GATEWAY_TIMEOUT", "3s")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cfg.GatewayTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.GatewayTimeout)
	}
}

func TestGetDBConnectionString(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.internal",
		DBPort:     "5433",
		DBUser:     "wallet",
		DBPassword: "secret",
		DBName:     "marketplace_wallet",
	}

	got := cfg.GetDBConnectionString()
	want := "host=db.internal port=5433 user=wallet password=secret dbname=marketplace_wallet sslmode=disable"
	if got != want {
		t.Errorf("connection string mismatch:\n got: %s\nwant: %s", got, want)
	}
}
