package services

import (
	"testing"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationService_Views(t *testing.T) {
	svc := NewAuthorizationService()

	tests := []struct {
		role  domain.Role
		views []domain.View
	}{
		{domain.RoleSuperAdmin, []domain.View{"dashboard", "tickets", "map", "workers", "departments", "reports", "settings"}},
		{domain.RoleAdmin, []domain.View{"dashboard", "tickets", "map", "workers", "departments", "reports", "settings"}},
		{domain.RoleViewer, []domain.View{"dashboard", "tickets", "map", "reports"}},
		{domain.RoleWorker, []domain.View{"dashboard", "tickets", "map"}},
		{"contractor", []domain.View{"dashboard"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			require.Equal(t, tt.views, svc.Views(&domain.User{Role: tt.role}))
		})
	}
	require.Empty(t, svc.Views(nil))
}

func TestAuthorizationService_Authorize(t *testing.T) {
	svc := NewAuthorizationService()
	worker := &domain.User{ID: 3, Role: domain.RoleWorker}
	admin := &domain.User{ID: 1, Role: domain.RoleAdmin}

	require.NoError(t, svc.Authorize(worker, domain.ViewTickets))
	require.NoError(t, svc.Authorize(admin, domain.ViewSettings))

	err := svc.Authorize(worker, domain.ViewWorkers)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.False(t, svc.Can(worker, domain.ViewReports))

	err = svc.Authorize(nil, domain.ViewDashboard)
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
