package mocks

import (
	"context"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockRemoteAPI is a mock implementation of ports.RemoteAPI
type MockRemoteAPI struct {
	mock.Mock
}

func NewMockRemoteAPI() *MockRemoteAPI {
	return &MockRemoteAPI{}
}

func (m *MockRemoteAPI) ListTickets(ctx context.Context, filters domain.TicketFilters) (*domain.Page[domain.Ticket], error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page[domain.Ticket]), args.Error(1)
}

func (m *MockRemoteAPI) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockRemoteAPI) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Worker), args.Error(1)
}

func (m *MockRemoteAPI) GetWorker(ctx context.Context, id int64) (*domain.Worker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Worker), args.Error(1)
}

func (m *MockRemoteAPI) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Department), args.Error(1)
}

func (m *MockRemoteAPI) GetAnalytics(ctx context.Context) (*domain.Analytics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Analytics), args.Error(1)
}

func (m *MockRemoteAPI) GetHotspots(ctx context.Context, bbox *domain.BoundingBox) ([]domain.Hotspot, error) {
	args := m.Called(ctx, bbox)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hotspot), args.Error(1)
}

func (m *MockRemoteAPI) GetTopHotspots(ctx context.Context) ([]domain.Hotspot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Hotspot), args.Error(1)
}

func (m *MockRemoteAPI) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRemoteAPI) AssignTicket(ctx context.Context, id int64, params ports.AssignTicketParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRemoteAPI) UpdateTicketStatus(ctx context.Context, id int64, params ports.UpdateStatusParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRemoteAPI) AddComment(ctx context.Context, id int64, params ports.AddCommentParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRemoteAPI) BulkAssign(ctx context.Context, params ports.BulkAssignParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockRemoteAPI) BulkUpdateStatus(ctx context.Context, params ports.BulkStatusParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockRemoteAPI) UpdateWorkerStatus(ctx context.Context, id int64, params ports.WorkerStatusParams) error {
	args := m.Called(ctx, id, params)
	return args.Error(0)
}

func (m *MockRemoteAPI) CreateUser(ctx context.Context, params domain.UserParams) (*domain.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRemoteAPI) UpdateUser(ctx context.Context, id int64, params domain.UserParams) (*domain.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRemoteAPI) DeleteUser(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRemoteAPI) RequestLogin(ctx context.Context, identifier string) error {
	args := m.Called(ctx, identifier)
	return args.Error(0)
}

func (m *MockRemoteAPI) VerifyLogin(ctx context.Context, code string) (*ports.LoginResult, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.LoginResult), args.Error(1)
}

func (m *MockRemoteAPI) CurrentUser(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) {
	m.Called(event)
}

// MockNavigator is a mock implementation of ports.Navigator
type MockNavigator struct {
	mock.Mock
}

func NewMockNavigator() *MockNavigator {
	return &MockNavigator{}
}

func (m *MockNavigator) Redirect(path string) {
	m.Called(path)
}
