package delivery

import "github.com/amelbouzid/karakou-backend/pkg/enums"

// allowedTransitions enumerates the logistics status machine. Delivered and
// failed are terminal; failed parcels re-enter as a fresh handoff from ready.
var allowedTransitions = map[enums.DeliveryStatus][]enums.DeliveryStatus{
	enums.DeliveryStatusNotReady: {
		enums.DeliveryStatusReady,
	},
	enums.DeliveryStatusReady: {
		enums.DeliveryStatusInTransit,
		enums.DeliveryStatusNotReady,
	},
	enums.DeliveryStatusInTransit: {
		enums.DeliveryStatusDelivered,
		enums.DeliveryStatusFailed,
	},
}

// CanTransition reports whether the logistics track allows the move.
func CanTransition(from, to enums.DeliveryStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
