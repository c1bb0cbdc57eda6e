package enums

import "fmt"

// StaffRole scopes which workflow operations an actor may call.
type StaffRole string

const (
	StaffRoleAdmin               StaffRole = "admin"
	StaffRoleConfirmationAgent   StaffRole = "confirmation_agent"
	StaffRoleDeliveryCoordinator StaffRole = "delivery_coordinator"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleConfirmationAgent,
	StaffRoleDeliveryCoordinator,
}

// String implements fmt.Stringer.
func (s StaffRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StaffRole.
func (s StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanConfirm reports whether the role may drive the confirmation track.
func (s StaffRole) CanConfirm() bool {
	return s == StaffRoleAdmin || s == StaffRoleConfirmationAgent
}

// CanDeliver reports whether the role may drive the delivery track.
func (s StaffRole) CanDeliver() bool {
	return s == StaffRoleAdmin || s == StaffRoleDeliveryCoordinator
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
