package ledger

import "transit-booking/internal/domain/offering"

func inventoryClass(s string) offering.Class {
	return offering.NormalizeClass(s)
}
