package enums

import "fmt"

// ConfirmationStatus tracks the call-center side of an order.
type ConfirmationStatus string

const (
	ConfirmationStatusPending     ConfirmationStatus = "pending"
	ConfirmationStatusConfirmed   ConfirmationStatus = "confirmed"
	ConfirmationStatusDoubleOrder ConfirmationStatus = "double_order"
	ConfirmationStatusDelayed     ConfirmationStatus = "delayed"
	ConfirmationStatusCancelled   ConfirmationStatus = "cancelled"
)

var validConfirmationStatuses = []ConfirmationStatus{
	ConfirmationStatusPending,
	ConfirmationStatusConfirmed,
	ConfirmationStatusDoubleOrder,
	ConfirmationStatusDelayed,
	ConfirmationStatusCancelled,
}

// String implements fmt.Stringer.
func (c ConfirmationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConfirmationStatus.
func (c ConfirmationStatus) IsValid() bool {
	for _, candidate := range validConfirmationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further confirmation transitions are expected.
func (c ConfirmationStatus) IsTerminal() bool {
	return c == ConfirmationStatusConfirmed || c == ConfirmationStatusCancelled
}

// ParseConfirmationStatus converts raw input into a ConfirmationStatus.
func ParseConfirmationStatus(value string) (ConfirmationStatus, error) {
	for _, candidate := range validConfirmationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid confirmation status %q", value)
}
