package orders

// advanceEdges lists the only moves Advance may make. Each status has at most
// one successor, so skipping a step is never possible.
var advanceEdges = map[Status]Status{
	StatusPreparing:      StatusReadyForPickup,
	StatusReadyForPickup: StatusOutForDelivery,
	StatusOutForDelivery: StatusCompleted,
}

// NextStatus returns the status Advance would move s to.
func NextStatus(s Status) (Status, bool) {
	next, ok := advanceEdges[s]
	return next, ok
}

// CanAdvance reports whether Advance(from -> to) is a permitted edge.
func CanAdvance(from, to Status) bool {
	next, ok := advanceEdges[from]
	return ok && next == to
}

// paymentEdges lists the permitted payment moves.
var paymentEdges = map[PaymentStatus]PaymentStatus{
	PaymentUnpaid: PaymentPaid,
	PaymentPaid:   PaymentRefunded,
}

func canSetPayment(from, to PaymentStatus) bool {
	next, ok := paymentEdges[from]
	return ok && next == to
}
