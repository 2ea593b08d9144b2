package domain

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

const dateOnlyLayout = "2006-01-02"

// Sortable ticket fields.
const (
	SortByID        = "id"
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByStatus    = "status"
	SortByCategory  = "category"
	SortBySLADue    = "sla_due"
)

// TicketFilters is the shared filter, sort and pagination contract for ticket lists.
// Zero values mean "no constraint".
type TicketFilters struct {
	Status     TicketStatus `json:"status,omitempty" validate:"omitempty,oneof=submitted triaged assigned in_progress resolved closed duplicate rejected"`
	Category   string       `json:"category,omitempty" validate:"max=100"`
	Department string       `json:"department,omitempty" validate:"max=100"`
	WorkerID   *int64       `json:"assigned_worker_id,omitempty" validate:"omitempty,min=1"`
	Query      string       `json:"q,omitempty" validate:"max=255"`
	From       string       `json:"from,omitempty" validate:"omitempty,datebound"`
	To         string       `json:"to,omitempty" validate:"omitempty,datebound"`
	Sort       string       `json:"sort,omitempty" validate:"omitempty,oneof=id created_at updated_at status category sla_due"`
	Order      string       `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
	Page       int          `json:"page,omitempty" validate:"min=0,max=1000000"`
	Limit      int          `json:"limit,omitempty" validate:"min=0,max=1000"`
}

// Page is one page of a list response.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// ParseDateBound accepts either RFC3339 or a bare date. A bare date used as
// an upper bound covers the whole day.
func ParseDateBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// EffectivePage returns the 1-based page number.
func (f TicketFilters) EffectivePage() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

// EffectiveLimit returns the page size after defaults and clamping.
func (f TicketFilters) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultPageLimit
	case f.Limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return f.Limit
	}
}

// Values encodes the filters as query parameters for the remote service.
func (f TicketFilters) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("status", string(f.Status))
	set("category", f.Category)
	set("department", f.Department)
	if f.WorkerID != nil {
		v.Set("assigned_worker_id", strconv.FormatInt(*f.WorkerID, 10))
	}
	set("q", f.Query)
	set("from", f.From)
	set("to", f.To)
	set("sort", f.Sort)
	set("order", f.Order)
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// ParseTicketFilters reads filters from query parameters. Only syntax is
// checked here; range checks belong to the validator.
func ParseTicketFilters(q url.Values) (TicketFilters, error) {
	f := TicketFilters{
		Status:     TicketStatus(q.Get("status")),
		Category:   q.Get("category"),
		Department: q.Get("department"),
		Query:      q.Get("q"),
		From:       q.Get("from"),
		To:         q.Get("to"),
		Sort:       q.Get("sort"),
		Order:      strings.ToLower(q.Get("order")),
	}
	if s := q.Get("assigned_worker_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return f, fmt.Errorf("assigned_worker_id: %w", err)
		}
		f.WorkerID = &id
	}
	for key, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		if s := q.Get(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return f, fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	return f, nil
}

// Match reports whether t satisfies every non-empty filter field.
func (f TicketFilters) Match(t *Ticket) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Department != "" && t.AssignedDept != f.Department {
		return false
	}
	if f.WorkerID != nil && !t.IsAssignedTo(*f.WorkerID) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) &&
			!strings.Contains(strings.ToLower(t.AssignedDept), q) {
			return false
		}
	}
	if f.From != "" {
		from, err := ParseDateBound(f.From, false)
		if err == nil && t.CreatedAt.Before(from) {
			return false
		}
	}
	if f.To != "" {
		to, err := ParseDateBound(f.To, true)
		if err == nil && t.CreatedAt.After(to) {
			return false
		}
	}
	return true
}

// FilterTickets applies filters, ordering and pagination to tickets.
// The input slice is not modified. Default order is newest first; an explicit
// sort is applied stably on top of it.
func FilterTickets(tickets []Ticket, f TicketFilters) Page[Ticket] {
	matched := make([]Ticket, 0, len(tickets))
	for i := range tickets {
		if f.Match(&tickets[i]) {
			matched = append(matched, tickets[i].Clone())
		}
	}

	slices.SortStableFunc(matched, func(a, b Ticket) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if f.Sort != "" {
		desc := f.Order == "desc"
		slices.SortStableFunc(matched, func(a, b Ticket) int {
			return compareTickets(&a, &b, f.Sort, desc)
		})
	}

	return Paginate(matched, f.EffectivePage(), f.EffectiveLimit())
}

// Paginate slices items into a 1-based page.
func Paginate[T any](items []T, page, limit int) Page[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	total := len(items)
	start := total
	if total > 0 && page-1 <= (total-1)/limit {
		start = (page - 1) * limit
	}
	end := start + min(limit, total-start)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:   out,
		Total:   total,
		Page:    page,
		PerPage: limit,
	}
}

// compareTickets orders by field. Missing values sort last regardless of direction.
func compareTickets(a, b *Ticket, field string, desc bool) int {
	dir := 1
	if desc {
		dir = -1
	}
	switch field {
	case SortByID:
		return dir * cmp.Compare(a.ID, b.ID)
	case SortByCreatedAt:
		return dir * a.CreatedAt.Compare(b.CreatedAt)
	case SortByUpdatedAt:
		return dir * a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByStatus:
		return dir * cmp.Compare(a.Status, b.Status)
	case SortByCategory:
		return dir * cmp.Compare(a.Category, b.Category)
	case SortBySLADue:
		switch {
		case a.SLADue == nil && b.SLADue == nil:
			return 0
		case a.SLADue == nil:
			return 1
		case b.SLADue == nil:
			return -1
		}
		return dir * a.SLADue.Compare(*b.SLADue)
	}
	return 0
}
