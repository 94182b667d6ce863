package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"manualcall/internal/core/domain"
	"manualcall/pkg/circuitbreaker"

	"go.uber.org/zap"
)

var ErrNoCommand = errors.New("speech command not configured")

// UtteranceRecorder counts finished utterances.
type UtteranceRecorder interface {
	RecordUtterance(err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordUtterance(error) {}

// LogSynthesizer writes captions to the log instead of speaking them.
type LogSynthesizer struct {
	logger   *zap.SugaredLogger
	recorder UtteranceRecorder
}

// NewLogSynthesizer creates a synthesizer that only logs; recorder may be nil
func NewLogSynthesizer(recorder UtteranceRecorder, logger *zap.SugaredLogger) *LogSynthesizer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LogSynthesizer{logger: logger, recorder: recorder}
}

// Speak logs text with the chosen voice
func (s *LogSynthesizer) Speak(ctx context.Context, text string, voice domain.VoiceHint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Infow("speak", "text", text, "voice_lang", voice.Lang, "voice_name", voice.Name)
	s.recorder.RecordUtterance(nil)
	return nil
}

// Stop is a no-op; logged utterances finish immediately
func (s *LogSynthesizer) Stop() {}

// CommandSynthesizer runs an external TTS program per utterance. Arguments may
// contain {text}, {voice} and {lang} placeholders. Starting a new utterance
// kills the one still playing.
type CommandSynthesizer struct {
	command  []string
	breaker  *circuitbreaker.CircuitBreaker
	recorder UtteranceRecorder
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// NewCommandSynthesizer creates a synthesizer running command through breaker
func NewCommandSynthesizer(
	command []string,
	breaker *circuitbreaker.CircuitBreaker,
	recorder UtteranceRecorder,
	logger *zap.SugaredLogger,
) (*CommandSynthesizer, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, ErrNoCommand
	}
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig())
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CommandSynthesizer{
		command:  command,
		breaker:  breaker,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Speak starts the utterance and returns once the process is running.
func (s *CommandSynthesizer) Speak(ctx context.Context, text string, voice domain.VoiceHint) error {
	args := expand(s.command, text, voice)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	u, err := circuitbreaker.ExecuteWithResult(ctx, s.breaker, func() (*utterance, error) {
		cmd := exec.Command(args[0], args[1:]...)
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", args[0], err)
		}
		return &utterance{cmd: cmd, done: make(chan struct{})}, nil
	})
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrOpen) {
			s.recorder.RecordUtterance(err)
		}
		return err
	}

	s.current = u
	go s.wait(u, voice)
	return nil
}

func (s *CommandSynthesizer) wait(u *utterance, voice domain.VoiceHint) {
	u.err = u.cmd.Wait()
	close(u.done)

	s.mu.Lock()
	interrupted := s.current != u
	if !interrupted {
		s.current = nil
	}
	s.mu.Unlock()

	if interrupted {
		s.logger.Debugw("utterance interrupted", "voice_lang", voice.Lang)
		return
	}
	if u.err != nil {
		s.logger.Warnw("speech command failed", "voice_lang", voice.Lang, "error", u.err)
	}
	s.recorder.RecordUtterance(u.err)
}

// Stop kills the running utterance, if any.
func (s *CommandSynthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *CommandSynthesizer) cancelLocked() {
	u := s.current
	if u == nil {
		return
	}
	s.current = nil
	if u.cmd.Process != nil {
		_ = u.cmd.Process.Kill()
	}
}

func expand(command []string, text string, voice domain.VoiceHint) []string {
	name := voice.Name
	if name == "" {
		name = voice.Lang
	}
	r := strings.NewReplacer("{text}", text, "{voice}", name, "{lang}", voice.Lang)
	out := make([]string, len(command))
	for i, arg := range command {
		out[i] = r.Replace(arg)
	}
	return out
}
