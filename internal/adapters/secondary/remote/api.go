package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lorrc/civic-dashboard/internal/core/domain"
	"github.com/lorrc/civic-dashboard/internal/core/ports"
)

var _ ports.RemoteAPI = (*Client)(nil)

func (c *Client) ListTickets(ctx context.Context, filters domain.TicketFilters) (*domain.Page[domain.Ticket], error) {
	var page domain.Page[domain.Ticket]
	if err := c.Do(ctx, http.MethodGet, "/tickets", filters.Values(), nil, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []domain.Ticket{}
	}
	return &page, nil
}

func (c *Client) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/tickets/%d", id), nil, nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (c *Client) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	workers := []domain.Worker{}
	if err := c.Do(ctx, http.MethodGet, "/workers", nil, nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

func (c *Client) GetWorker(ctx context.Context, id int64) (*domain.Worker, error) {
	var worker domain.Worker
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/workers/%d", id), nil, nil, &worker); err != nil {
		return nil, err
	}
	return &worker, nil
}

func (c *Client) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	departments := []domain.Department{}
	if err := c.Do(ctx, http.MethodGet, "/departments", nil, nil, &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

func (c *Client) GetAnalytics(ctx context.Context) (*domain.Analytics, error) {
	var analytics domain.Analytics
	if err := c.Do(ctx, http.MethodGet, "/analytics/sla", nil, nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

func (c *Client) GetHotspots(ctx context.Context, bbox *domain.BoundingBox) ([]domain.Hotspot, error) {
	var query url.Values
	if bbox != nil {
		query = url.Values{"bbox": {bbox.String()}}
	}
	hotspots := []domain.Hotspot{}
	if err := c.Do(ctx, http.MethodGet, "/tickets/hotspots", query, nil, &hotspots); err != nil {
		return nil, err
	}
	return hotspots, nil
}

func (c *Client) GetTopHotspots(ctx context.Context) ([]domain.Hotspot, error) {
	hotspots := []domain.Hotspot{}
	if err := c.Do(ctx, http.MethodGet, "/analytics/top-hotspots", nil, nil, &hotspots); err != nil {
		return nil, err
	}
	return hotspots, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := c.Do(ctx, http.MethodGet, "/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) AssignTicket(ctx context.Context, id int64, params ports.AssignTicketParams) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/tickets/%d/assign", id), nil, params, nil)
}

func (c *Client) UpdateTicketStatus(ctx context.Context, id int64, params ports.UpdateStatusParams) error {
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/tickets/%d/status", id), nil, params, nil)
}

func (c *Client) AddComment(ctx context.Context, id int64, params ports.AddCommentParams) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/tickets/%d/comments", id), nil, params, nil)
}

func (c *Client) BulkAssign(ctx context.Context, params ports.BulkAssignParams) error {
	return c.Do(ctx, http.MethodPost, "/tickets/bulk-assign", nil, params, nil)
}

func (c *Client) BulkUpdateStatus(ctx context.Context, params ports.BulkStatusParams) error {
	return c.Do(ctx, http.MethodPost, "/tickets/bulk-status", nil, params, nil)
}

func (c *Client) UpdateWorkerStatus(ctx context.Context, id int64, params ports.WorkerStatusParams) error {
	return c.Do(ctx, http.MethodPatch, fmt.Sprintf("/workers/%d/status", id), nil, params, nil)
}

func (c *Client) CreateUser(ctx context.Context, params domain.UserParams) (*domain.User, error) {
	var user domain.User
	if err := c.Do(ctx, http.MethodPost, "/users", nil, params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, params domain.UserParams) (*domain.User, error) {
	var user domain.User
	if err := c.Do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), nil, params, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil, nil)
}

func (c *Client) RequestLogin(ctx context.Context, identifier string) error {
	body := struct {
		PhoneOrEmail string `json:"phoneOrEmail"`
	}{PhoneOrEmail: identifier}
	return c.Do(ctx, http.MethodPost, "/auth/login", nil, body, nil)
}

func (c *Client) VerifyLogin(ctx context.Context, code string) (*ports.LoginResult, error) {
	body := struct {
		OTP string `json:"otp"`
	}{OTP: code}
	var result ports.LoginResult
	if err := c.Do(ctx, http.MethodPost, "/auth/verify-otp", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
