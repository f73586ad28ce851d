package access

import (
	"fmt"
	"strings"

	"github.com/kingshoppers/storefront/pkg/enums"
	"github.com/kingshoppers/storefront/pkg/kingapi"
)

// Area is a gated part of the storefront.
type Area string

const (
	AreaStorefront        Area = "storefront"
	AreaCart              Area = "cart"
	AreaCheckout          Area = "checkout"
	AreaAdminDashboard    Area = "admin_dashboard"
	AreaSalesDashboard    Area = "sales_dashboard"
	AreaDeliveryDashboard Area = "delivery_dashboard"
)

const (
	PathLogin             = "/login"
	PathHome              = "/"
	PathPendingApproval   = "/pending-approval"
	PathAdminDashboard    = "/admin/dashboard"
	PathSalesDashboard    = "/sales/dashboard"
	PathDeliveryDashboard = "/delivery/dashboard"
)

// Identity is the signed-in user as the storefront sees it.
type Identity struct {
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	UserType   enums.UserType `json:"user_type"`
	IsApproved bool           `json:"is_approved"`
	HubID      string         `json:"hub_id,omitempty"`
}

// IdentityFromUser maps the /auth/me response. A nil user is anonymous.
func IdentityFromUser(user *kingapi.User) (*Identity, error) {
	if user == nil {
		return nil, nil
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, fmt.Errorf("user id missing from session")
	}
	userType, err := enums.ParseUserType(user.Kind())
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:     user.ID,
		Name:       user.Name,
		Email:      user.Email,
		UserType:   userType,
		IsApproved: user.IsApproved,
		HubID:      user.HubID,
	}, nil
}

// LandingPath is where a user goes after signing in.
func LandingPath(id *Identity) string {
	if id == nil {
		return PathLogin
	}
	switch id.UserType {
	case enums.UserTypeAdmin:
		return PathAdminDashboard
	case enums.UserTypeSalesExecutive:
		return PathSalesDashboard
	case enums.UserTypeDelivery:
		return PathDeliveryDashboard
	case enums.UserTypeCustomer:
		if !id.IsApproved {
			return PathPendingApproval
		}
		return PathHome
	default:
		return PathLogin
	}
}

// CanAccess decides whether id may use area. Guests may browse and build
// a cart; checkout needs an approved customer.
func CanAccess(id *Identity, area Area) bool {
	if id == nil {
		return area == AreaStorefront || area == AreaCart
	}
	switch id.UserType {
	case enums.UserTypeAdmin:
		switch area {
		case AreaStorefront, AreaAdminDashboard, AreaSalesDashboard, AreaDeliveryDashboard:
			return true
		}
		return false
	case enums.UserTypeSalesExecutive:
		return area == AreaStorefront || area == AreaSalesDashboard
	case enums.UserTypeDelivery:
		return area == AreaDeliveryDashboard
	case enums.UserTypeCustomer:
		switch area {
		case AreaStorefront, AreaCart:
			return true
		case AreaCheckout:
			return id.IsApproved
		}
		return false
	default:
		return false
	}
}
