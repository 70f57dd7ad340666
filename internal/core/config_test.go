package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jo-hoe/gofeedback/internal/lock"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, config.Port)
	}
	if config.UploadDir != filepath.Join("data", "uploads") {
		t.Errorf("unexpected upload dir %q", config.UploadDir)
	}
	if config.LogFile != filepath.Join("data", "feedback_logs.json") {
		t.Errorf("unexpected log file %q", config.LogFile)
	}
	if config.AppendLock.Type != lock.TypeLocal {
		t.Errorf("Expected local append lock, got %q", config.AppendLock.Type)
	}
	if len(config.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 default origins, got %v", config.AllowedOrigins)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 8080
dataDir: /srv/feedback
allowedOrigins:
  - https://example.org
appendLock:
  type: redis
  redis:
    address: localhost:6379
    ttl: 5s
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 8080 {
		t.Errorf("Expected port to be 8080, got %d", config.Port)
	}
	if config.UploadDir != filepath.Join("/srv/feedback", "uploads") {
		t.Errorf("Expected upload dir below dataDir, got %q", config.UploadDir)
	}
	if config.LogFile != filepath.Join("/srv/feedback", "feedback_logs.json") {
		t.Errorf("Expected log file below dataDir, got %q", config.LogFile)
	}
	if len(config.AllowedOrigins) != 1 || config.AllowedOrigins[0] != "https://example.org" {
		t.Errorf("Expected configured origins to replace defaults, got %v", config.AllowedOrigins)
	}
	if config.AppendLock.Redis.TTL != 5*time.Second {
		t.Errorf("Expected ttl 5s, got %v", config.AppendLock.Redis.TTL)
	}
	if config.BodyLimit != DefaultBodyLimit {
		t.Errorf("Expected default body limit, got %q", config.BodyLimit)
	}
}

func TestLoadConfig_ExplicitPaths(t *testing.T) {
	configPath := writeConfig(t, `uploadDir: /tmp/u
logFile: /tmp/l.json
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.UploadDir != "/tmp/u" || config.LogFile != "/tmp/l.json" {
		t.Errorf("explicit paths not honored: %q %q", config.UploadDir, config.LogFile)
	}
	if config.Port != DefaultPort {
		t.Errorf("Expected default port, got %d", config.Port)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"redis without address": "appendLock:\n  type: redis\n",
		"unknown lock type":     "appendLock:\n  type: zookeeper\n",
		"port out of range":     "port: 70000\n",
		"no paths":              "dataDir: \"\"\n",
		"malformed yaml":        "port: [\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	// Test with a non-existent file
	nonExistentPath := "/path/that/does/not/exist/config.yaml"

	config, err := LoadConfig(nonExistentPath)

	// Expect an error
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}

	// Config should be nil
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestApplyEnvironment(t *testing.T) {
	config := DefaultConfig()

	t.Setenv("PORT", "")
	if err := config.ApplyEnvironment(); err != nil || config.Port != DefaultPort {
		t.Fatalf("empty PORT must keep default, got %d (%v)", config.Port, err)
	}

	t.Setenv("PORT", "9090")
	if err := config.ApplyEnvironment(); err != nil {
		t.Fatalf("ApplyEnvironment error: %v", err)
	}
	if config.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", config.Port)
	}

	t.Setenv("PORT", "abc")
	if err := config.ApplyEnvironment(); err == nil {
		t.Error("Expected error for non-numeric PORT")
	}
}

func TestNewCoreService(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.UploadDir = filepath.Join(dir, "uploads")
	config.LogFile = filepath.Join(dir, "feedback_logs.json")

	service, err := NewCoreService(config, nil)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = service.Close() })

	if service.Store() == nil {
		t.Fatal("Expected store to be initialized")
	}
	if _, err := os.Stat(config.LogFile); err != nil {
		t.Errorf("Expected log file to be created: %v", err)
	}
}

func TestNewCoreService_InvalidLock(t *testing.T) {
	config := DefaultConfig()
	config.AppendLock.Type = "unknown"

	if _, err := NewCoreService(config, nil); err == nil {
		t.Fatal("Expected error for unknown lock type")
	}
}
