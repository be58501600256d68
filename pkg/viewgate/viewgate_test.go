package viewgate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/tokengate/pkg/identity"
	"github.com/dmitrymomot/tokengate/pkg/siteconfig"
	"github.com/dmitrymomot/tokengate/pkg/viewgate"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	member := &identity.User{ID: "u1", Role: identity.RoleUser}
	admin := &identity.User{ID: "u2", Role: identity.RoleAdmin}

	maintenance := siteconfig.Config{IsMaintenanceMode: true}
	normal := siteconfig.Config{}

	tests := []struct {
		name      string
		requested viewgate.View
		user      *identity.User
		cfg       siteconfig.Config
		want      viewgate.View
	}{
		{
			name:      "non-admin requesting admin lands on dashboard",
			requested: viewgate.ViewAdmin,
			user:      member,
			cfg:       normal,
			want:      viewgate.ViewDashboard,
		},
		{
			name:      "maintenance locks out anonymous users",
			requested: viewgate.ViewDashboard,
			user:      nil,
			cfg:       maintenance,
			want:      viewgate.ViewMaintenance,
		},
		{
			name:      "anonymous landing stays landing",
			requested: viewgate.ViewLanding,
			user:      nil,
			cfg:       normal,
			want:      viewgate.ViewLanding,
		},
		{
			name:      "maintenance locks out members",
			requested: viewgate.ViewBilling,
			user:      member,
			cfg:       maintenance,
			want:      viewgate.ViewMaintenance,
		},
		{
			name:      "admins bypass maintenance",
			requested: viewgate.ViewDashboard,
			user:      admin,
			cfg:       maintenance,
			want:      viewgate.ViewDashboard,
		},
		{
			name:      "admin reaches admin view",
			requested: viewgate.ViewAdmin,
			user:      admin,
			cfg:       normal,
			want:      viewgate.ViewAdmin,
		},
		{
			name:      "anonymous admin request lands on landing path via dashboard redirect",
			requested: viewgate.ViewAdmin,
			user:      nil,
			cfg:       normal,
			want:      viewgate.ViewDashboard,
		},
		{
			name:      "anonymous non-landing redirects to landing",
			requested: viewgate.ViewBilling,
			user:      nil,
			cfg:       normal,
			want:      viewgate.ViewLanding,
		},
		{
			name:      "unspecified view defaults to dashboard",
			requested: "",
			user:      member,
			cfg:       normal,
			want:      viewgate.ViewDashboard,
		},
		{
			name:      "member request honored",
			requested: viewgate.ViewBilling,
			user:      member,
			cfg:       normal,
			want:      viewgate.ViewBilling,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, viewgate.Resolve(tt.requested, tt.user, tt.cfg))
		})
	}
}
