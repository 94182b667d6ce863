package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/services"
	"manualcall/internal/infrastructure/monitoring"
	"manualcall/internal/testutil"
	"manualcall/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-role", "answerer", "-addr", ":9000"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "configs/config.yaml", opts.configPath)
	assert.Equal(t, "answerer", opts.role)
	assert.Equal(t, ":9000", opts.address)

	_, err = parseFlags([]string{"-bogus"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")

	cfg, err := loadConfig(options{configPath: missing, role: "answerer", address: ":9000"})
	require.NoError(t, err)
	assert.Equal(t, "answerer", cfg.Session.Role)
	assert.Equal(t, ":9000", cfg.Server.Address)

	_, err = loadConfig(options{configPath: missing, role: "observer"})
	assert.Error(t, err)
}

func TestBuildSessionConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Role = "answerer"
	cfg.Session.SpeakOnReceive = true
	cfg.Session.SendRetry.Enabled = true
	cfg.Translation.Mode = "mock-tag"
	cfg.Speech.VoiceLang = "ja"

	sc, err := buildSessionConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAnswerer, sc.Role)
	assert.Equal(t, domain.TranslationMockTag, sc.Translation.Mode)
	assert.Equal(t, domain.LanguageAuto, sc.Translation.SourceLang)
	assert.Equal(t, domain.LanguageEnglish, sc.Translation.TargetLang)
	assert.True(t, sc.Channel.SpeakOnReceive)
	assert.Equal(t, domain.LanguageJapanese, sc.Channel.VoiceLang)
	assert.True(t, sc.Channel.SendRetry.Enabled)
	assert.Equal(t, 3, sc.Channel.SendRetry.MaxAttempts)
	assert.Equal(t, 50, sc.CaptionLogLimit)
	assert.Equal(t, 2*time.Second, sc.GatherTimeout)

	cfg.Translation.Mode = "deepl"
	_, err = buildSessionConfig(cfg)
	assert.Error(t, err)
}

func TestBuildSpeech(t *testing.T) {
	metrics := monitoring.NewPrometheusCollector(prometheus.NewRegistry())
	cfg := config.DefaultConfig()

	synth, check, err := buildSpeech(cfg, metrics, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NotNil(t, synth)
	assert.Nil(t, check)

	cfg.Speech.Engine = "command"
	cfg.Speech.Command = []string{"say", "{text}"}
	synth, check, err = buildSpeech(cfg, metrics, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NotNil(t, check)
	assert.NoError(t, check(context.Background()))
	synth.Stop()
}

func TestBuildRouter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "k3y"

	sessions, err := services.NewSessionManager(
		services.SessionConfig{Role: domain.RoleCaller},
		services.Dependencies{Factory: &testutil.FakeFactory{}, Microphone: &testutil.FakeMicrophone{}},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sessions.Close() })

	router := buildRouter(cfg, routerDeps{
		sessions: sessions,
		health:   monitoring.NewHealthChecker(),
		metrics:  monitoring.NewPrometheusCollector(prometheus.NewRegistry()),
		log:      zap.NewNop().Sugar(),
	})

	get := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusOK, get("/ready"))
	assert.Equal(t, http.StatusOK, get("/metrics"))
	assert.Equal(t, http.StatusUnauthorized, get("/api/v1/session"))
}
