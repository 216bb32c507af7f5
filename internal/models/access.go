package models

// AccessState is what a student may currently do regarding a class event.
type AccessState string

// The four access states. No other value is ever produced.
const (
	AccessNeedsPurchase  AccessState = "NEEDS_PURCHASE"
	AccessPendingPayment AccessState = "PENDING_PAYMENT"
	AccessWaitingRelease AccessState = "WAITING_RELEASE"
	AccessCanEnter       AccessState = "CAN_ENTER"
)

// AllAccessStates lists every access state.
var AllAccessStates = []AccessState{
	AccessNeedsPurchase,
	AccessPendingPayment,
	AccessWaitingRelease,
	AccessCanEnter,
}
