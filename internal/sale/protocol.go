package sale

// Step identifies a stage of the commit protocol. A commit walks the
// steps in order and either reaches StepCommitted or stops at the step
// that failed.
type Step string

const (
	StepValidating        Step = "validating"
	StepReservingNumber   Step = "reserving_number"
	StepPersistingInvoice Step = "persisting_invoice"
	StepUpdatingInventory Step = "updating_inventory"
	StepCommitted         Step = "committed"
)

// Durable reports whether a failure at this step may have left durable
// writes behind that an operator has to reconcile. Failures before the
// invoice row exists are safe to retry from scratch.
func (s Step) Durable() bool {
	switch s {
	case StepUpdatingInventory, StepCommitted:
		return true
	default:
		return false
	}
}

func (s Step) String() string { return string(s) }
