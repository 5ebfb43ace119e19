package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 无配置文件时走默认值
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.Server.HTTP.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.HTTP.Port)
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("default token expiry = %d, want 24", cfg.Auth.TokenExpireHours)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Errorf("default jwt secret is empty")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http:
    port: 9090
    debug: true
webhook:
  base_url: "https://chat.example.com"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() returned error: %v", err)
	}
	if cfg.Server.HTTP.Port != 9090 || !cfg.Server.HTTP.Debug {
		t.Errorf("server config = %+v", cfg.Server.HTTP)
	}
	if cfg.Webhook.BaseURL != "https://chat.example.com" {
		t.Errorf("webhook base_url = %q", cfg.Webhook.BaseURL)
	}
	// 未写的配置项仍取默认值
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("token expiry = %d, want 24", cfg.Auth.TokenExpireHours)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CHATGATE_TEST_SECRET", "from-env")

	cfg := &Config{}
	cfg.Auth.JWTSecret = "${CHATGATE_TEST_SECRET}"
	expandEnvVars(cfg)

	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt secret = %q, want from-env", cfg.Auth.JWTSecret)
	}
}
