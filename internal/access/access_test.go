package access

import (
	"testing"

	"github.com/kingshoppers/storefront/pkg/enums"
	"github.com/kingshoppers/storefront/pkg/kingapi"
)

func TestLandingPath(t *testing.T) {
	cases := []struct {
		name string
		id   *Identity
		want string
	}{
		{name: "anonymous", id: nil, want: PathLogin},
		{name: "admin", id: &Identity{UserType: enums.UserTypeAdmin}, want: PathAdminDashboard},
		{name: "sales", id: &Identity{UserType: enums.UserTypeSalesExecutive}, want: PathSalesDashboard},
		{name: "delivery", id: &Identity{UserType: enums.UserTypeDelivery}, want: PathDeliveryDashboard},
		{name: "approved customer", id: &Identity{UserType: enums.UserTypeCustomer, IsApproved: true}, want: PathHome},
		{name: "pending customer", id: &Identity{UserType: enums.UserTypeCustomer}, want: PathPendingApproval},
		{name: "unknown", id: &Identity{UserType: "robot"}, want: PathLogin},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LandingPath(tc.id); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestCanAccess(t *testing.T) {
	admin := &Identity{UserType: enums.UserTypeAdmin}
	sales := &Identity{UserType: enums.UserTypeSalesExecutive}
	delivery := &Identity{UserType: enums.UserTypeDelivery}
	approved := &Identity{UserType: enums.UserTypeCustomer, IsApproved: true}
	pending := &Identity{UserType: enums.UserTypeCustomer}

	cases := []struct {
		name string
		id   *Identity
		area Area
		want bool
	}{
		{"guest browses", nil, AreaStorefront, true},
		{"guest builds cart", nil, AreaCart, true},
		{"guest cannot check out", nil, AreaCheckout, false},
		{"approved customer checks out", approved, AreaCheckout, true},
		{"pending customer cannot check out", pending, AreaCheckout, false},
		{"pending customer builds cart", pending, AreaCart, true},
		{"customer has no dashboards", approved, AreaSalesDashboard, false},
		{"admin sees sales dashboard", admin, AreaSalesDashboard, true},
		{"admin sees delivery stats", admin, AreaDeliveryDashboard, true},
		{"admin does not check out", admin, AreaCheckout, false},
		{"sales sees own dashboard", sales, AreaSalesDashboard, true},
		{"sales cannot see admin", sales, AreaAdminDashboard, false},
		{"delivery sees stats", delivery, AreaDeliveryDashboard, true},
		{"delivery cannot shop", delivery, AreaCart, false},
		{"unknown type denied", &Identity{UserType: "robot"}, AreaStorefront, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccess(tc.id, tc.area); got != tc.want {
				t.Fatalf("expected %v got %v", tc.want, got)
			}
		})
	}
}

func TestIdentityFromUser(t *testing.T) {
	id, err := IdentityFromUser(nil)
	if err != nil || id != nil {
		t.Fatalf("expected anonymous, got %v %v", id, err)
	}

	id, err = IdentityFromUser(&kingapi.User{ID: "u1", UserType: "Delivery-Agent", HubID: "hub-9"})
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if id.UserType != enums.UserTypeDelivery || id.HubID != "hub-9" {
		t.Fatalf("unexpected identity %+v", id)
	}

	id, err = IdentityFromUser(&kingapi.User{ID: "u2", Role: "admin"})
	if err != nil || id.UserType != enums.UserTypeAdmin {
		t.Fatalf("expected role fallback to admin, got %+v %v", id, err)
	}

	if _, err := IdentityFromUser(&kingapi.User{ID: "u1", UserType: "pirate"}); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if _, err := IdentityFromUser(&kingapi.User{UserType: "customer"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}
