package tracking

import (
	"strings"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

// statusMapping fixes how carrier vocabulary lands on the delivery track.
// The carrier reports in French with occasional English aliases; anything
// outside this table is left unmapped and flagged for manual review.
var statusMapping = map[string]enums.DeliveryStatus{
	"livré":              enums.DeliveryStatusDelivered,
	"delivered":          enums.DeliveryStatusDelivered,
	"echec livraison":    enums.DeliveryStatusFailed,
	"delivery failed":    enums.DeliveryStatusFailed,
	"retourné":           enums.DeliveryStatusFailed,
	"returned":           enums.DeliveryStatusFailed,
	"expédié":            enums.DeliveryStatusInTransit,
	"picked up":          enums.DeliveryStatusInTransit,
	"sorti en livraison": enums.DeliveryStatusInTransit,
	"out for delivery":   enums.DeliveryStatusInTransit,
	"en transit":         enums.DeliveryStatusInTransit,
	"in transit":         enums.DeliveryStatusInTransit,
}

// MapCarrierStatus resolves a raw carrier status. The second result is false
// when the vocabulary is unknown.
func MapCarrierStatus(raw string) (enums.DeliveryStatus, bool) {
	status, ok := statusMapping[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}
