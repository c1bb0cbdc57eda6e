package confirmation

import "github.com/amelbouzid/karakou-backend/pkg/enums"

// allowedTransitions enumerates the call-center status machine. Cancelled is
// terminal. Confirmed only leaves via a pre-shipment cancel. A delayed order
// may re-queue to pending for another attempt.
var allowedTransitions = map[enums.ConfirmationStatus][]enums.ConfirmationStatus{
	enums.ConfirmationStatusPending: {
		enums.ConfirmationStatusConfirmed,
		enums.ConfirmationStatusDelayed,
		enums.ConfirmationStatusDoubleOrder,
		enums.ConfirmationStatusCancelled,
	},
	enums.ConfirmationStatusDelayed: {
		enums.ConfirmationStatusPending,
		enums.ConfirmationStatusConfirmed,
		enums.ConfirmationStatusCancelled,
	},
	enums.ConfirmationStatusDoubleOrder: {
		enums.ConfirmationStatusConfirmed,
		enums.ConfirmationStatusCancelled,
	},
	enums.ConfirmationStatusConfirmed: {
		enums.ConfirmationStatusCancelled,
	},
}

// CanTransition reports whether the call-center track allows moving from one
// status to another. A delayed order cannot be flagged as a double order and
// vice versa; agents resolve one state before entering the other.
func CanTransition(from, to enums.ConfirmationStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// sweepable reports whether the unreachable sweep may cancel an order in this
// status. Pending and delayed orders both wait on the customer.
func sweepable(status enums.ConfirmationStatus) bool {
	return status == enums.ConfirmationStatusPending ||
		status == enums.ConfirmationStatusDelayed
}

// CanRecordAttempt reports whether contact attempts may still be logged.
func CanRecordAttempt(status enums.ConfirmationStatus) bool {
	switch status {
	case enums.ConfirmationStatusPending,
		enums.ConfirmationStatusDelayed,
		enums.ConfirmationStatusDoubleOrder:
		return true
	default:
		return false
	}
}
