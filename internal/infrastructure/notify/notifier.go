// Package notify delivers core notifications to the log and to live
// websocket clients.
package notify

import (
	"manualcall/internal/core/domain"
	"manualcall/internal/core/ports"
	"manualcall/pkg/utils"

	"go.uber.org/zap"
)

const maxLoggedCaptionRunes = 120

// LogNotifier mirrors toasts and state changes to the structured log.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// NewLogNotifier creates a notifier writing to logger
func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs toasts at their level, captions at info and state changes at debug
func (l *LogNotifier) Notify(n domain.Notification) {
	switch n.Kind {
	case domain.KindToast:
		fields := []interface{}{"session_id", n.SessionID, "level", n.Level}
		switch n.Level {
		case domain.LevelError:
			l.logger.Errorw(n.Message, fields...)
		case domain.LevelWarning:
			l.logger.Warnw(n.Message, fields...)
		default:
			l.logger.Infow(n.Message, fields...)
		}
	case domain.KindCaption:
		if n.Caption != nil {
			l.logger.Infow("caption",
				"session_id", n.SessionID,
				"origin", n.Caption.Origin,
				"text", utils.TruncateRunes(n.Caption.Text, maxLoggedCaptionRunes),
			)
		}
	default:
		l.logger.Debugw("state changed", "session_id", n.SessionID, "kind", n.Kind, "state", n.State)
	}
}

// Fanout forwards each notification to every target in order.
type Fanout []ports.Notifier

// Notify implements ports.Notifier
func (f Fanout) Notify(n domain.Notification) {
	for _, target := range f {
		if target != nil {
			target.Notify(n)
		}
	}
}
