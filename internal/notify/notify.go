// Package notify models the transient toast messages shown by the widget and
// the sinks that receive them.
package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level is the toast severity.
type Level string

const (
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notification is a single toast.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// New builds a Notification with a fresh ID.
func New(level Level, message string, at time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: at.UTC(),
	}
}

// Notifier receives notifications. Implementations must not block for long;
// they are called from the widget's event loop.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a plain function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Multi fans a notification out to every non-nil notifier in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(n)
		}
	}
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (l *LogNotifier) Notify(n Notification) {
	fields := []zap.Field{
		zap.String("id", n.ID),
		zap.String("level", string(n.Level)),
		zap.String("message", n.Message),
	}
	switch n.Level {
	case LevelError:
		l.logger.Error("notification", fields...)
	case LevelWarning:
		l.logger.Warn("notification", fields...)
	default:
		l.logger.Info("notification", fields...)
	}
}
