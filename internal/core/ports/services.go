package ports

import (
	"context"
	"encoding/json"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
)

// AssignTicketParams defines the input for assigning a ticket.
// At least one of department or worker must be set.
type AssignTicketParams struct {
	AssignedDept     string `json:"assignedDept,omitempty" validate:"required_without=AssignedWorkerID,max=100"`
	AssignedWorkerID *int64 `json:"assignedWorkerId,omitempty" validate:"omitempty,gt=0"`
}

// UpdateStatusParams defines the input for changing a ticket's status.
type UpdateStatusParams struct {
	Status domain.TicketStatus `json:"status" validate:"required,oneof=submitted triaged assigned in_progress resolved closed duplicate rejected"`
	Note   string              `json:"note,omitempty" validate:"max=1000"`
}

// AddCommentParams defines the input for commenting on a ticket.
type AddCommentParams struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// BulkAssignParams assigns several tickets at once.
type BulkAssignParams struct {
	TicketIDs []int64 `json:"ticketIds" validate:"required,min=1,max=1000,unique,dive,gt=0"`
	AssignTicketParams
}

// BulkStatusParams changes the status of several tickets at once.
type BulkStatusParams struct {
	TicketIDs []int64 `json:"ticketIds" validate:"required,min=1,max=1000,unique,dive,gt=0"`
	UpdateStatusParams
}

// WorkerStatusParams changes a worker's availability.
type WorkerStatusParams struct {
	Status domain.WorkerStatus `json:"status" validate:"required,oneof=online offline busy"`
}

// LoginResult is returned once a one-time code was verified.
type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// DataSource is the read surface shared by the remote service and the synthetic dataset.
type DataSource interface {
	ListTickets(ctx context.Context, filters domain.TicketFilters) (*domain.Page[domain.Ticket], error)
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	ListWorkers(ctx context.Context) ([]domain.Worker, error)
	GetWorker(ctx context.Context, id int64) (*domain.Worker, error)
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	GetAnalytics(ctx context.Context) (*domain.Analytics, error)
	GetHotspots(ctx context.Context, bbox *domain.BoundingBox) ([]domain.Hotspot, error)
	GetTopHotspots(ctx context.Context) ([]domain.Hotspot, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// RemoteAPI is the full REST surface of the remote civic-issue service.
type RemoteAPI interface {
	DataSource

	AssignTicket(ctx context.Context, id int64, params AssignTicketParams) error
	UpdateTicketStatus(ctx context.Context, id int64, params UpdateStatusParams) error
	AddComment(ctx context.Context, id int64, params AddCommentParams) error
	BulkAssign(ctx context.Context, params BulkAssignParams) error
	BulkUpdateStatus(ctx context.Context, params BulkStatusParams) error
	UpdateWorkerStatus(ctx context.Context, id int64, params WorkerStatusParams) error
	CreateUser(ctx context.Context, params domain.UserParams) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, params domain.UserParams) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error

	RequestLogin(ctx context.Context, identifier string) error
	VerifyLogin(ctx context.Context, code string) (*LoginResult, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Authenticator is the local one-time-code flow used when the remote is unreachable.
type Authenticator interface {
	RequestCode(identifier string) error
	VerifyCode(code string) (*LoginResult, error)
	UserForToken(token string) (*domain.User, error)
	IsLocalToken(token string) bool
	Reset()
}

// TokenStore persists the session token across restarts.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// SessionStore holds the signed-in session.
type SessionStore interface {
	TokenSource
	User() *domain.User
	SetSession(ctx context.Context, token string, user *domain.User) error
	SetUser(user *domain.User)
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
	OnInvalidated(fn func())
}

// TokenSource hands the current bearer token to outbound calls.
type TokenSource interface {
	Token() string
	// ClearIfCurrent discards the token only if it is still token, and
	// reports whether it did.
	ClearIfCurrent(token string) bool
}

// Navigator receives forced navigation requests for the presentation layer.
type Navigator interface {
	Redirect(path string)
}

// Listener receives the raw payload of one push event.
type Listener func(data json.RawMessage)

// ListenerHandle identifies one registration so it can be removed later.
type ListenerHandle uint64

// PushChannel is the live event connection to the remote service.
type PushChannel interface {
	Connect(ctx context.Context) error
	Disconnect()
	On(event domain.EventName, listener Listener) ListenerHandle
	// Off removes the given registrations, or every listener for event when none are given.
	Off(event domain.EventName, handles ...ListenerHandle)
	Emit(event domain.EventName, data any) error
	IsConnected() bool
}

// EventBroadcaster fans reconciled events out to browser tabs.
type EventBroadcaster interface {
	Broadcast(event domain.Event)
}
