package domain

import (
	"fmt"
	"time"
)

// Notification is an ephemeral, session-only alert derived from a push event.
type Notification struct {
	ID        string    `json:"id"`
	Type      EventName `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// NewTicketCreatedNotification builds the alert shown for a new ticket.
func NewTicketCreatedNotification(t *Ticket, at time.Time) Notification {
	return Notification{
		ID:        fmt.Sprintf("ticket-%d-%d", t.ID, at.UnixNano()),
		Type:      EventTicketCreated,
		Title:     "New Ticket Created",
		Message:   fmt.Sprintf("New %s ticket reported", t.Category),
		Timestamp: at,
	}
}

// NewTicketUpdatedNotification builds the alert shown for a changed ticket.
func NewTicketUpdatedNotification(t *Ticket, at time.Time) Notification {
	return Notification{
		ID:        fmt.Sprintf("ticket-update-%d-%d", t.ID, at.UnixNano()),
		Type:      EventTicketUpdated,
		Title:     "Ticket Updated",
		Message:   fmt.Sprintf("Ticket #%d status changed to %s", t.ID, t.Status),
		Timestamp: at,
	}
}
