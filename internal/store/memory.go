package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-by-city/internal/notify"
)

var (
	// ErrNotFound is returned when no notification matches a query.
	ErrNotFound = errors.New("no notifications")
)

// NotificationStore is a concurrency-safe in-memory feed of recent toasts.
// It backs the notification surface and is not persisted.
type NotificationStore struct {
	mu sync.RWMutex

	// oldest first
	items []notify.Notification

	// retention configuration
	maxHistory int           // max number of notifications kept
	maxAge     time.Duration // optional max age for notifications

	clock clockwork.Clock
}

// NewNotificationStore creates a new store with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewNotificationStore(maxHistory int, maxAge time.Duration) *NotificationStore {
	return &NotificationStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clockwork.NewRealClock(),
	}
}

// WithClock swaps the time source used for age-based retention.
func (s *NotificationStore) WithClock(c clockwork.Clock) *NotificationStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
	return s
}

// Notify implements notify.Notifier.
func (s *NotificationStore) Notify(n notify.Notification) {
	s.Append(n)
}

// Append adds a notification and enforces retention.
func (s *NotificationStore) Append(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, n)
	s.pruneLocked()
}

func (s *NotificationStore) pruneLocked() {
	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.items) > s.maxHistory {
		over := len(s.items) - s.maxHistory
		s.items = append([]notify.Notification(nil), s.items[over:]...)
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.items); i++ {
			if !s.items[i].CreatedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.items = append([]notify.Notification(nil), s.items[i:]...)
		}
	}
}

// Latest returns the most recent notification.
func (s *NotificationStore) Latest() (notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	if len(s.items) == 0 {
		return notify.Notification{}, ErrNotFound
	}
	return s.items[len(s.items)-1], nil
}

// Recent returns up to limit notifications, newest first. limit <= 0 means all.
func (s *NotificationStore) Recent(limit int) []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	n := len(s.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]notify.Notification, 0, n)
	for i := len(s.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.items[i])
	}
	return out
}

// Since returns notifications created at or after from, oldest first.
func (s *NotificationStore) Since(from time.Time) ([]notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()

	var result []notify.Notification
	for _, n := range s.items {
		if !n.CreatedAt.Before(from) {
			result = append(result, n)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len reports the number of retained notifications.
func (s *NotificationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
