package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/gofeedback/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "12345")

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 12345, config.Port)
	assert.Equal(t, filepath.Join("data", "feedback_logs.json"), config.LogFile)
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_FromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("port: 8081\n"), 0o644))
	t.Setenv("CONFIG_PATH", configPath)
	t.Setenv("PORT", "")

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8081, config.Port)
}

func TestDefineServer_CORS(t *testing.T) {
	config := core.DefaultConfig()
	e := defineServer(config)
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://rkawk123.github.io")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "https://rkawk123.github.io", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))

	req = httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
