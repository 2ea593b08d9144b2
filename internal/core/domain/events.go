package domain

import (
	"encoding/json"
)

// EventName identifies a push event.
type EventName string

const (
	EventTicketCreated  EventName = "ticket.created"
	EventTicketUpdated  EventName = "ticket.updated"
	EventTicketAssigned EventName = "ticket.assigned"
	EventWorkerStatus   EventName = "worker.status"

	// EventNavigate is emitted to browser tabs when the session forces a redirect.
	EventNavigate EventName = "session.navigate"

	// Room membership is forwarded from browser tabs to the push service.
	EventJoinRoom  EventName = "join-room"
	EventLeaveRoom EventName = "leave-room"
)

// PushEnvelope is the frame format on the push socket.
type PushEnvelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TicketAssignedPayload is the body of a ticket.assigned event.
type TicketAssignedPayload struct {
	TicketID int64 `json:"ticketId"`
	WorkerID int64 `json:"workerId"`
}

// WorkerStatusPayload is the body of a worker.status event.
type WorkerStatusPayload struct {
	WorkerID int64        `json:"workerId"`
	Status   WorkerStatus `json:"status"`
}

// NavigatePayload tells the presentation layer where to go.
type NavigatePayload struct {
	Path string `json:"path"`
}

// Event is the payload relayed to browser tabs over the dashboard's own websocket.
type Event struct {
	Type     EventName `json:"type"`
	Payload  any       `json:"payload"`
	TicketID int64     `json:"ticketId,omitempty"`
}
