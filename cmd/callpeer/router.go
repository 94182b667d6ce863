package main

import (
	"manualcall/internal/core/domain"
	"manualcall/internal/core/services"
	httphandlers "manualcall/internal/handlers/http"
	"manualcall/internal/infrastructure/middleware"
	"manualcall/pkg/config"
	"manualcall/pkg/logger"
	"manualcall/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func buildRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(deps.log),
		middleware.RequestMiddleware(logger.NewContextLogger(deps.log.Named("http")), deps.metrics),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(deps.log),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	httphandlers.NewSystemHandler(deps.health, deps.events).SetupRoutes(router)
	if cfg.Monitoring.PrometheusEnabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	guards := httphandlers.RouteGuards{
		CaptionLimit: middleware.NewCaptionRateLimitMiddleware(cfg),
	}
	if cfg.Auth.Enabled {
		auth := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
		httphandlers.NewAuthHandler(auth, cfg.Auth.APIKey).SetupRoutes(router)
		api.Use(middleware.AuthMiddleware(auth))
		guards.Operator = middleware.RequireScope(auth, services.ScopeOperator)
		deps.log.Infow("control API auth enabled",
			"token_ttl", utils.FormatDuration(cfg.Auth.AccessTokenTTL),
			"api_key", utils.MaskSecret(cfg.Auth.APIKey, 4),
		)
	}

	voiceLang, err := domain.ParseLanguage(cfg.Speech.VoiceLang)
	if err != nil {
		voiceLang = domain.LanguageAuto
	}
	httphandlers.NewCallHandler(deps.sessions, deps.speech, httphandlers.SpeechConfig{
		VoiceLang: voiceLang,
		VoiceName: cfg.Speech.VoiceName,
	}, deps.log.Named("api")).SetupRoutes(api, guards)

	return router
}
