package main

import (
	"context"
	"errors"
	"fmt"

	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/internal/core/services"
	"manualcall/internal/infrastructure/media"
	"manualcall/internal/infrastructure/monitoring"
	"manualcall/internal/infrastructure/speech"
	webrtcinfra "manualcall/internal/infrastructure/webrtc"
	"manualcall/pkg/circuitbreaker"
	"manualcall/pkg/config"
	"manualcall/pkg/retry"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

func buildSessionConfig(cfg *config.Config) (services.SessionConfig, error) {
	role, err := domain.ParsePeerRole(cfg.Session.Role)
	if err != nil {
		return services.SessionConfig{}, err
	}
	tc, err := translationConfig(cfg)
	if err != nil {
		return services.SessionConfig{}, err
	}
	voiceLang, err := domain.ParseLanguage(cfg.Speech.VoiceLang)
	if err != nil {
		return services.SessionConfig{}, fmt.Errorf("speech.voice_lang: %w", err)
	}

	sendRetry := retry.DefaultConfig()
	sendRetry.Enabled = cfg.Session.SendRetry.Enabled
	sendRetry.MaxAttempts = cfg.Session.SendRetry.MaxAttempts
	sendRetry.InitialDelay = cfg.Session.SendRetry.InitialDelay
	sendRetry.MaxDelay = cfg.Session.SendRetry.MaxDelay

	return services.SessionConfig{
		Role:        role,
		Translation: tc,
		Channel: services.ChannelManagerConfig{
			SpeakOnReceive: cfg.Session.SpeakOnReceive,
			VoiceLang:      voiceLang,
			VoiceName:      cfg.Speech.VoiceName,
			SendRetry:      sendRetry,
		},
		CaptionLogLimit: cfg.Session.CaptionLogLimit,
		GatherTimeout:   cfg.WebRTC.ICEGatherTimeout,
	}, nil
}

func translationConfig(cfg *config.Config) (domain.TranslationConfig, error) {
	src, err := domain.ParseLanguage(cfg.Translation.SourceLang)
	if err != nil {
		return domain.TranslationConfig{}, fmt.Errorf("translation.source_lang: %w", err)
	}
	tgt, err := domain.ParseLanguage(cfg.Translation.TargetLang)
	if err != nil {
		return domain.TranslationConfig{}, fmt.Errorf("translation.target_lang: %w", err)
	}
	mode, err := domain.ParseTranslationMode(cfg.Translation.Mode)
	if err != nil {
		return domain.TranslationConfig{}, fmt.Errorf("translation.mode: %w", err)
	}
	return domain.TranslationConfig{SourceLang: src, TargetLang: tgt, Mode: mode}, nil
}

func buildFactory(cfg *config.Config, stats webrtcinfra.MediaStats, log *zap.SugaredLogger) (*webrtcinfra.Factory, error) {
	var wcfg webrtcinfra.Config
	for _, s := range cfg.WebRTC.ICEServers {
		wcfg.ICEServers = append(wcfg.ICEServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}
	wcfg.PortRange.Min = cfg.WebRTC.PortRange.Min
	wcfg.PortRange.Max = cfg.WebRTC.PortRange.Max
	return webrtcinfra.NewFactory(wcfg, stats, log)
}

func buildMicrophone(cfg *config.Config, log *zap.SugaredLogger) *media.Microphone {
	return media.NewMicrophone(media.Config{
		Source:        cfg.Microphone.Source,
		File:          cfg.Microphone.File,
		FrameDuration: cfg.Microphone.FrameDuration,
	}, log.Named("microphone"))
}

// stoppableSpeech is a synthesizer that can cut off the current utterance.
type stoppableSpeech interface {
	ports.SpeechSynthesizer
	Stop()
}

// buildSpeech returns the synthesizer and, for the command engine, a health
// check that fails while its circuit breaker is open.
func buildSpeech(cfg *config.Config, metrics *monitoring.PrometheusCollector, log *zap.SugaredLogger) (stoppableSpeech, func(context.Context) error, error) {
	log = log.Named("speech")
	if cfg.Speech.Engine != "command" {
		return speech.NewLogSynthesizer(metrics, log), nil, nil
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.FailureThreshold = cfg.Speech.Breaker.FailureThreshold
	breakerCfg.Timeout = cfg.Speech.Breaker.Timeout
	breaker := circuitbreaker.New(breakerCfg)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		log.Warnw("speech circuit breaker state changed", "from", from.String(), "to", to.String())
	})

	synth, err := speech.NewCommandSynthesizer(cfg.Speech.Command, breaker, metrics, log)
	if err != nil {
		return nil, nil, err
	}
	check := func(context.Context) error {
		if breaker.State() == circuitbreaker.StateOpen {
			return errors.New("speech circuit breaker is open")
		}
		return nil
	}
	return synth, check, nil
}

func buildTranslator(cfg *config.Config) ports.Translator {
	base := services.NewCaptionTranslator()
	if cfg.Translation.CacheTTL <= 0 {
		return base
	}
	return services.NewCachedTranslator(base, cfg.Translation.CacheTTL)
}
