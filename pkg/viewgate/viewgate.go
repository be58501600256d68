package viewgate

import (
	"github.com/dmitrymomot/tokengate/pkg/identity"
	"github.com/dmitrymomot/tokengate/pkg/siteconfig"
)

// View names the screens the gate can resolve to.
type View string

const (
	// ViewLanding is the public landing page.
	ViewLanding View = "landing"
	// ViewDashboard is the default authenticated view.
	ViewDashboard View = "dashboard"
	// ViewBilling hosts the plan catalog and checkout entry.
	ViewBilling View = "billing"
	// ViewConfirm is the post-payment confirmation view.
	ViewConfirm View = "confirm"
	// ViewAdmin is restricted to the admin role.
	ViewAdmin View = "admin"
	// ViewMaintenance is the lockout placeholder forced during maintenance.
	ViewMaintenance View = "maintenance"
)

// Resolve applies access-control and mode overrides to the requested view.
//
// It is a pure function of its three inputs and must be re-evaluated on
// every navigation, auth change, or configuration change; callers must not
// cache the result across renders. Rules apply in priority order:
//
//  1. Maintenance mode locks out everyone except admins.
//  2. The admin view requires the admin role; others land on the dashboard.
//  3. Signed-out users only see the landing view.
//  4. Otherwise the request is honored, defaulting to the dashboard.
func Resolve(requested View, user *identity.User, cfg siteconfig.Config) View {
	if cfg.IsMaintenanceMode && !user.IsAdmin() {
		return ViewMaintenance
	}

	if requested == ViewAdmin && !user.IsAdmin() {
		return ViewDashboard
	}

	if user == nil && requested != ViewLanding {
		return ViewLanding
	}

	if requested == "" {
		return ViewDashboard
	}

	return requested
}
