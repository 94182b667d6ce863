package webrtc

import (
	"fmt"

	"manualcall/internal/core/ports"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Config is the peer connection configuration shared by every call.
type Config struct {
	ICEServers []webrtc.ICEServer
	PortRange  struct {
		Min uint16
		Max uint16
	}
}

// Factory builds pion peer connections wrapped as ports.PeerConnection.
type Factory struct {
	config Config
	api    *webrtc.API
	stats  MediaStats
	logger *zap.SugaredLogger
}

// NewFactory builds a pion API with default codecs, interceptors and the configured port range
func NewFactory(config Config, stats MediaStats, logger *zap.SugaredLogger) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("failed to register interceptors: %w", err)
	}

	settingEngine := webrtc.SettingEngine{}
	if config.PortRange.Min > 0 && config.PortRange.Max > 0 {
		if err := settingEngine.SetEphemeralUDPPortRange(config.PortRange.Min, config.PortRange.Max); err != nil {
			return nil, fmt.Errorf("invalid port range: %w", err)
		}
	}

	if stats == nil {
		stats = nopStats{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Factory{
		config: config,
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(registry),
			webrtc.WithSettingEngine(settingEngine),
		),
		stats:  stats,
		logger: logger,
	}, nil
}

// NewPeerConnection creates a unified-plan peer connection with the configured ICE servers
func (f *Factory) NewPeerConnection() (ports.PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(webrtc.Configuration{
		ICEServers:   f.config.ICEServers,
		SDPSemantics: webrtc.SDPSemanticsUnifiedPlan,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	f.logger.Debugw("peer connection created", "ice_servers", len(f.config.ICEServers))
	return newPeerConnection(pc, f.stats, f.logger), nil
}
