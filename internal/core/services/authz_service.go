package services

import (
	"github.com/lorrc/civic-dashboard/internal/core/domain"
	apperrors "github.com/lorrc/civic-dashboard/internal/core/errors"
)

// AuthorizationService decides which dashboard sections a user may open.
// The remote service stays authoritative for writes; this only mirrors the
// menu so the dashboard never serves a section the user cannot see.
type AuthorizationService struct{}

func NewAuthorizationService() *AuthorizationService {
	return &AuthorizationService{}
}

// Can checks if a user may open a section.
func (s *AuthorizationService) Can(user *domain.User, view domain.View) bool {
	if user == nil {
		return false
	}
	return domain.CanView(user.Role, view)
}

// Authorize returns an error when the user may not open view.
func (s *AuthorizationService) Authorize(user *domain.User, view domain.View) error {
	if user == nil {
		return apperrors.NewUnauthenticatedError("Authentication required")
	}
	if !domain.CanView(user.Role, view) {
		return apperrors.NewForbiddenError("You do not have access to " + string(view))
	}
	return nil
}

// Views returns every section the user may open, in menu order.
func (s *AuthorizationService) Views(user *domain.User) []domain.View {
	if user == nil {
		return []domain.View{}
	}
	return domain.ViewsForRole(user.Role)
}
