// Package media provides local audio sources backed by pion sample tracks.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"manualcall/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	pionmedia "github.com/pion/webrtc/v3/pkg/media"
	"github.com/pion/webrtc/v3/pkg/media/oggreader"
	"go.uber.org/zap"
)

const (
	SourceSilence = "silence"
	SourceOgg     = "ogg"

	opusClockRate = 48000
)

// opusSilence is a single Opus frame that decodes to 20ms of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

var ErrNoSource = errors.New("no audio source configured")

// Config selects the audio source: silence or an Ogg/Opus file
type Config struct {
	Source        string
	File          string
	FrameDuration time.Duration
}

// Microphone captures audio from the configured source. Only one capture
// runs at a time; Start replaces the previous one.
type Microphone struct {
	config Config
	logger *zap.SugaredLogger

	mu     sync.Mutex
	track  *audioTrack
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMicrophone creates a stopped microphone
func NewMicrophone(config Config, logger *zap.SugaredLogger) *Microphone {
	if config.FrameDuration <= 0 {
		config.FrameDuration = 20 * time.Millisecond
	}
	if config.Source == "" {
		config.Source = SourceSilence
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Microphone{config: config, logger: logger}
}

// Start opens the source and begins writing samples. ctx bounds only the
// acquisition; the capture runs until Stop.
func (m *Microphone) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pump, err := m.openSource()
	if err != nil {
		return err
	}

	track, err := newAudioTrack()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.track = track
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		if err := pump(runCtx, track); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warnw("microphone capture stopped", "source", m.config.Source, "error", err)
		}
	}()

	m.logger.Infow("microphone started", "source", m.config.Source, "track_id", track.ID())
	return nil
}

// Stop ends the running capture, if any
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	return nil
}

func (m *Microphone) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.logger.Infow("microphone stopped", "track_id", m.track.ID())
	m.cancel = nil
	m.done = nil
	m.track = nil
}

// Tracks returns the live track, or nil when stopped
func (m *Microphone) Tracks() []ports.AudioTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.track == nil {
		return nil
	}
	return []ports.AudioTrack{m.track}
}

type pumpFunc func(ctx context.Context, track *audioTrack) error

func (m *Microphone) openSource() (pumpFunc, error) {
	switch m.config.Source {
	case SourceSilence:
		return m.pumpSilence, nil
	case SourceOgg:
		if m.config.File == "" {
			return nil, ErrNoSource
		}
		f, err := os.Open(m.config.File)
		if err != nil {
			return nil, fmt.Errorf("open audio file: %w", err)
		}
		if _, _, err := oggreader.NewWith(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("read ogg header: %w", err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, err
		}
		return func(ctx context.Context, track *audioTrack) error {
			defer f.Close()
			return m.pumpOgg(ctx, f, track)
		}, nil
	default:
		return nil, fmt.Errorf("unknown microphone source %q", m.config.Source)
	}
}

func (m *Microphone) pumpSilence(ctx context.Context, track *audioTrack) error {
	ticker := time.NewTicker(m.config.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := track.write(opusSilence, m.config.FrameDuration); err != nil {
				return err
			}
		}
	}
}

// pumpOgg plays an Ogg/Opus file on a loop, one page per tick.
func (m *Microphone) pumpOgg(ctx context.Context, f *os.File, track *audioTrack) error {
	reader, _, err := oggreader.NewWith(f)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(m.config.FrameDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		page, header, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return err
			}
			if reader, _, err = oggreader.NewWith(f); err != nil {
				return err
			}
			lastGranule = 0
			continue
		}
		if err != nil {
			return err
		}

		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(samples) * time.Second / opusClockRate

		if err := track.write(page, duration); err != nil {
			return err
		}
	}
}

// audioTrack is a local Opus track. While disabled it sends silence so the
// remote decoder keeps its timing.
type audioTrack struct {
	local   *webrtc.TrackLocalStaticSample
	enabled atomic.Bool
}

func newAudioTrack() (*audioTrack, error) {
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2},
		"audio-"+uuid.NewString(),
		"manualcall-mic",
	)
	if err != nil {
		return nil, fmt.Errorf("create audio track: %w", err)
	}
	t := &audioTrack{local: local}
	t.enabled.Store(true)
	return t, nil
}

func (t *audioTrack) ID() string               { return t.local.ID() }
func (t *audioTrack) Kind() string             { return t.local.Kind().String() }
func (t *audioTrack) Enabled() bool            { return t.enabled.Load() }
func (t *audioTrack) SetEnabled(enabled bool)  { t.enabled.Store(enabled) }
func (t *audioTrack) Local() webrtc.TrackLocal { return t.local }

func (t *audioTrack) write(data []byte, duration time.Duration) error {
	if !t.Enabled() {
		data = opusSilence
	}
	return t.local.WriteSample(pionmedia.Sample{Data: data, Duration: duration})
}
