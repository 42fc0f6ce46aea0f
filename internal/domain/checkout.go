package domain

// CheckoutStep is a step of the linear checkout wizard.
type CheckoutStep string

const (
	StepCart         CheckoutStep = "cart"
	StepAddress      CheckoutStep = "address"
	StepPayment      CheckoutStep = "payment"
	StepConfirmation CheckoutStep = "confirmation"
)

// CheckoutSteps is the wizard order.
var CheckoutSteps = []CheckoutStep{StepCart, StepAddress, StepPayment, StepConfirmation}

// Index returns the position of s in CheckoutSteps, or -1.
func (s CheckoutStep) Index() int {
	for i, step := range CheckoutSteps {
		if step == s {
			return i
		}
	}
	return -1
}
