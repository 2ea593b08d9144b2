package domain

// View is a top-level dashboard section.
type View string

const (
	ViewDashboard   View = "dashboard"
	ViewTickets     View = "tickets"
	ViewMap         View = "map"
	ViewWorkers     View = "workers"
	ViewDepartments View = "departments"
	ViewReports     View = "reports"
	ViewSettings    View = "settings"
)

var allViews = []View{
	ViewDashboard,
	ViewTickets,
	ViewMap,
	ViewWorkers,
	ViewDepartments,
	ViewReports,
	ViewSettings,
}

// ViewsForRole returns the sections a role may see, in menu order.
func ViewsForRole(role Role) []View {
	switch role {
	case RoleSuperAdmin, RoleAdmin:
		return append([]View(nil), allViews...)
	case RoleViewer:
		return []View{ViewDashboard, ViewTickets, ViewMap, ViewReports}
	case RoleWorker:
		return []View{ViewDashboard, ViewTickets, ViewMap}
	default:
		return []View{ViewDashboard}
	}
}

// CanView reports whether role may open view.
func CanView(role Role, view View) bool {
	for _, v := range ViewsForRole(role) {
		if v == view {
			return true
		}
	}
	return false
}
