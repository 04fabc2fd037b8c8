package store

import "clinic/frontdesk-service/internal/models"

var chargeStatuses = map[string]struct{}{
	models.ChargeStatusPending:  {},
	models.ChargeStatusPaid:     {},
	models.ChargeStatusRefunded: {},
}

// ValidChargeStatus reports whether status belongs to the closed set
// accepted on charges. Transitions between valid statuses are not
// restricted server-side; the caller decides which transitions to
// offer.
func ValidChargeStatus(status string) bool {
	_, ok := chargeStatuses[status]
	return ok
}
