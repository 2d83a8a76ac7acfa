package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kaushikharsh99/MARK-2/domain/repositories"
)

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is one user-facing notification.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Ring keeps the most recent notices in memory so API clients can list
// them, and mirrors each one to the log. It is the process-local stand-in
// for toast popups.
type Ring struct {
	logger *zap.Logger

	mu      sync.Mutex
	notices []Notice
	limit   int
}

var _ repositories.Notifier = (*Ring)(nil)

// NewRing creates a Ring holding up to limit notices.
func NewRing(limit int, logger *zap.Logger) *Ring {
	if limit <= 0 {
		limit = 50
	}
	return &Ring{logger: logger, limit: limit}
}

// Info records an informational notice.
func (r *Ring) Info(msg string) {
	r.logger.Info(msg)
	r.push(LevelInfo, msg)
}

// Success records a success notice.
func (r *Ring) Success(msg string) {
	r.logger.Info(msg)
	r.push(LevelSuccess, msg)
}

// Error records an error notice.
func (r *Ring) Error(msg string) {
	r.logger.Warn(msg)
	r.push(LevelError, msg)
}

func (r *Ring) push(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	})
	if len(r.notices) > r.limit {
		r.notices = r.notices[len(r.notices)-r.limit:]
	}
}

// Recent returns the stored notices, newest last.
func (r *Ring) Recent() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}
