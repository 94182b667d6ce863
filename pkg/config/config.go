package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"manualcall/pkg/validation"

	"gopkg.in/yaml.v2"
)

// ICEServer is one STUN or TURN server offered to the peer connection
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// Config represents application configuration
type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	WebRTC struct {
		ICEServers []ICEServer `yaml:"ice_servers"`
		PortRange  struct {
			Min uint16 `yaml:"min"`
			Max uint16 `yaml:"max"`
		} `yaml:"port_range"`
		ICEGatherTimeout time.Duration `yaml:"ice_gather_timeout"`
	} `yaml:"webrtc"`

	Session struct {
		Role            string `yaml:"role"`
		SpeakOnReceive  bool   `yaml:"speak_on_receive"`
		CaptionLogLimit int    `yaml:"caption_log_limit"`
		SendRetry       struct {
			Enabled      bool          `yaml:"enabled"`
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"send_retry"`
	} `yaml:"session"`

	Translation struct {
		SourceLang string        `yaml:"source_lang"`
		TargetLang string        `yaml:"target_lang"`
		Mode       string        `yaml:"mode"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
	} `yaml:"translation"`

	Microphone struct {
		Source        string        `yaml:"source"` // silence | ogg
		File          string        `yaml:"file"`
		FrameDuration time.Duration `yaml:"frame_duration"`
	} `yaml:"microphone"`

	Speech struct {
		Engine    string   `yaml:"engine"` // log | command
		Command   []string `yaml:"command"`
		VoiceLang string   `yaml:"voice_lang"`
		VoiceName string   `yaml:"voice_name"`
		Breaker   struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			Timeout          time.Duration `yaml:"timeout"`
		} `yaml:"breaker"`
	} `yaml:"speech"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		MetricsPath       string `yaml:"metrics_path"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Auth struct {
		Enabled        bool          `yaml:"enabled"`
		JWTSecret      string        `yaml:"jwt_secret"`
		APIKey         string        `yaml:"api_key"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		Captions struct {
			PerSecond float64 `yaml:"per_second"`
			Burst     int     `yaml:"burst"`
		} `yaml:"captions"`
	} `yaml:"rate_limiting"`
}

// Validate validates configuration values
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if len(c.WebRTC.ICEServers) == 0 {
		return fmt.Errorf("webrtc.ice_servers must list at least one server")
	}
	for i, s := range c.WebRTC.ICEServers {
		if len(s.URLs) == 0 {
			return fmt.Errorf("webrtc.ice_servers[%d].urls must not be empty", i)
		}
		for _, u := range s.URLs {
			if err := validation.ValidateICEURL(u); err != nil {
				return fmt.Errorf("webrtc.ice_servers[%d]: %w", i, err)
			}
		}
	}
	if c.WebRTC.PortRange.Min > 0 || c.WebRTC.PortRange.Max > 0 {
		if c.WebRTC.PortRange.Min == 0 || c.WebRTC.PortRange.Max == 0 {
			return fmt.Errorf("webrtc.port_range.min and max must both be set when one is set")
		}
		if c.WebRTC.PortRange.Min >= c.WebRTC.PortRange.Max {
			return fmt.Errorf("webrtc.port_range.min must be < max")
		}
	}
	if c.WebRTC.ICEGatherTimeout <= 0 {
		return fmt.Errorf("webrtc.ice_gather_timeout must be > 0")
	}

	switch c.Session.Role {
	case "caller", "answerer":
	default:
		return fmt.Errorf("session.role must be caller or answerer, got %q", c.Session.Role)
	}
	if c.Session.CaptionLogLimit <= 0 {
		return fmt.Errorf("session.caption_log_limit must be > 0")
	}
	if c.Session.SendRetry.Enabled && c.Session.SendRetry.MaxAttempts <= 0 {
		return fmt.Errorf("session.send_retry.max_attempts must be > 0 when send_retry.enabled=true")
	}

	for name, lang := range map[string]string{
		"translation.source_lang": c.Translation.SourceLang,
		"translation.target_lang": c.Translation.TargetLang,
		"speech.voice_lang":       c.Speech.VoiceLang,
	} {
		switch lang {
		case "auto", "ja", "en":
		default:
			return fmt.Errorf("%s must be auto, ja or en, got %q", name, lang)
		}
	}
	switch c.Translation.Mode {
	case "none", "mock-tag", "mini-dict":
	default:
		return fmt.Errorf("translation.mode must be none, mock-tag or mini-dict, got %q", c.Translation.Mode)
	}

	switch c.Microphone.Source {
	case "silence":
	case "ogg":
		if c.Microphone.File == "" {
			return fmt.Errorf("microphone.file must not be empty when microphone.source=ogg")
		}
	default:
		return fmt.Errorf("microphone.source must be silence or ogg, got %q", c.Microphone.Source)
	}
	if c.Microphone.FrameDuration <= 0 {
		return fmt.Errorf("microphone.frame_duration must be > 0")
	}

	switch c.Speech.Engine {
	case "log":
	case "command":
		if len(c.Speech.Command) == 0 {
			return fmt.Errorf("speech.command must not be empty when speech.engine=command")
		}
	default:
		return fmt.Errorf("speech.engine must be log or command, got %q", c.Speech.Engine)
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Tracing.Enabled && c.Tracing.JaegerURL == "" {
		return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
	}

	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret must not be empty when auth.enabled=true")
		}
		if c.Auth.AccessTokenTTL <= 0 {
			return fmt.Errorf("auth.access_token_ttl must be > 0")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Captions.PerSecond <= 0 {
			return fmt.Errorf("rate_limiting.captions.per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Captions.Burst <= 0 {
			return fmt.Errorf("rate_limiting.captions.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env overrides.
// A missing file yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second

	cfg.WebRTC.ICEServers = []ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
		{URLs: []string{"stun:stun1.l.google.com:19302"}},
	}
	cfg.WebRTC.ICEGatherTimeout = 2 * time.Second

	cfg.Session.Role = "caller"
	cfg.Session.SpeakOnReceive = false
	cfg.Session.CaptionLogLimit = 50
	cfg.Session.SendRetry.MaxAttempts = 3
	cfg.Session.SendRetry.InitialDelay = 50 * time.Millisecond
	cfg.Session.SendRetry.MaxDelay = time.Second

	cfg.Translation.SourceLang = "auto"
	cfg.Translation.TargetLang = "en"
	cfg.Translation.Mode = "mini-dict"
	cfg.Translation.CacheTTL = 10 * time.Minute

	cfg.Microphone.Source = "silence"
	cfg.Microphone.FrameDuration = 20 * time.Millisecond

	cfg.Speech.Engine = "log"
	cfg.Speech.VoiceLang = "auto"
	cfg.Speech.Breaker.FailureThreshold = 3
	cfg.Speech.Breaker.Timeout = 30 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsPath = "/metrics"

	cfg.Tracing.ServiceName = "manualcall"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = time.Hour
	cfg.Auth.AllowedOrigins = []string{"*"}

	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.Captions.PerSecond = 5
	cfg.RateLimiting.Captions.Burst = 10

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("MANUALCALL_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if role := os.Getenv("MANUALCALL_ROLE"); role != "" {
		c.Session.Role = role
	}
	if mode := os.Getenv("MANUALCALL_TRANSLATION_MODE"); mode != "" {
		c.Translation.Mode = mode
	}
	if level := os.Getenv("MANUALCALL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("MANUALCALL_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if key := os.Getenv("MANUALCALL_API_KEY"); key != "" {
		c.Auth.APIKey = key
	}
	// Comma-separated STUN/TURN URLs replace the configured servers.
	if urls := splitAndClean(os.Getenv("MANUALCALL_ICE_URLS")); len(urls) > 0 {
		c.WebRTC.ICEServers = []ICEServer{{
			URLs:       urls,
			Username:   strings.TrimSpace(os.Getenv("MANUALCALL_ICE_USERNAME")),
			Credential: strings.TrimSpace(os.Getenv("MANUALCALL_ICE_CREDENTIAL")),
		}}
	}
}

func splitAndClean(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
