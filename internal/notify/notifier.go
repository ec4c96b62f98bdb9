package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level classifies a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is the headless equivalent of the admin UI's transient toast.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Entity  string    `json:"entity"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier records notifications in a bounded ring so the local surface can
// replay the most recent ones.
type Notifier struct {
	mu        sync.Mutex
	retention int
	entries   []Notification
	logger    *zap.Logger
}

// NewNotifier builds a notifier keeping up to retention entries.
func NewNotifier(retention int, logger *zap.Logger) *Notifier {
	if retention <= 0 {
		retention = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{retention: retention, logger: logger}
}

// Success records a success notification.
func (n *Notifier) Success(entity, op, message string) {
	n.push(Notification{Level: LevelSuccess, Entity: entity, Op: op, Message: message})
}

// Error records an error notification.
func (n *Notifier) Error(entity, op, message string) {
	n.push(Notification{Level: LevelError, Entity: entity, Op: op, Message: message})
}

// Recent returns the retained notifications, newest first.
func (n *Notifier) Recent(limit int) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if limit <= 0 || limit > len(n.entries) {
		limit = len(n.entries)
	}
	out := make([]Notification, 0, limit)
	for i := len(n.entries) - 1; i >= len(n.entries)-limit; i-- {
		out = append(out, n.entries[i])
	}
	return out
}

func (n *Notifier) push(entry Notification) {
	entry.ID = uuid.NewString()
	entry.At = time.Now().UTC()

	n.mu.Lock()
	n.entries = append(n.entries, entry)
	if overflow := len(n.entries) - n.retention; overflow > 0 {
		n.entries = n.entries[overflow:]
	}
	n.mu.Unlock()

	n.logger.Info("notification",
		zap.String("level", string(entry.Level)),
		zap.String("entity", entry.Entity),
		zap.String("op", entry.Op),
		zap.String("message", entry.Message),
	)
}
