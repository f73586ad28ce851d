package enums

import (
	"fmt"
	"strings"
)

// UserType is the closed set of account kinds the storefront serves.
type UserType string

const (
	UserTypeAdmin          UserType = "admin"
	UserTypeSalesExecutive UserType = "sales_executive"
	UserTypeDelivery       UserType = "delivery"
	UserTypeCustomer       UserType = "customer"
)

var validUserTypes = []UserType{
	UserTypeAdmin,
	UserTypeSalesExecutive,
	UserTypeDelivery,
	UserTypeCustomer,
}

// The remote API has used several spellings over time.
var userTypeAliases = map[string]UserType{
	"admin":           UserTypeAdmin,
	"administrator":   UserTypeAdmin,
	"sales":           UserTypeSalesExecutive,
	"sales_executive": UserTypeSalesExecutive,
	"salesexecutive":  UserTypeSalesExecutive,
	"sales_agent":     UserTypeSalesExecutive,
	"delivery":        UserTypeDelivery,
	"delivery_agent":  UserTypeDelivery,
	"deliveryagent":   UserTypeDelivery,
	"customer":        UserTypeCustomer,
	"user":            UserTypeCustomer,
	"buyer":           UserTypeCustomer,
}

// String implements fmt.Stringer.
func (u UserType) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserType.
func (u UserType) IsValid() bool {
	for _, candidate := range validUserTypes {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserType normalizes the API's userType strings into a UserType.
func ParseUserType(value string) (UserType, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if userType, ok := userTypeAliases[key]; ok {
		return userType, nil
	}
	return "", fmt.Errorf("invalid user type %q", value)
}
