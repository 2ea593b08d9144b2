package viewmodel

import (
	"slices"
	"sync"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

// NotificationLimit is how many notifications the feed keeps.
const NotificationLimit = 20

// NotificationFeed is the newest-first, bounded list of session notifications.
type NotificationFeed struct {
	mu    sync.RWMutex
	items []domain.Notification
	limit int
}

func NewNotificationFeed(limit int) *NotificationFeed {
	if limit < 1 {
		limit = NotificationLimit
	}
	return &NotificationFeed{limit: limit}
}

// Push adds n at the head and drops the oldest beyond the limit.
func (f *NotificationFeed) Push(n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = slices.Insert(f.items, 0, n)
	if len(f.items) > f.limit {
		f.items = f.items[:f.limit]
	}
}

// Items returns the notifications, newest first.
func (f *NotificationFeed) Items() []domain.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.items)
}

// Unread counts notifications not yet marked read.
func (f *NotificationFeed) Unread() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, item := range f.items {
		if !item.Read {
			n++
		}
	}
	return n
}

func (f *NotificationFeed) MarkAllRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		f.items[i].Read = true
	}
}

func (f *NotificationFeed) Reset() {
	f.mu.Lock()
	f.items = nil
	f.mu.Unlock()
}
