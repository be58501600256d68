package checkout

import "errors"

var (
	// ErrCheckoutInProgress rejects a second Initiate while an attempt is
	// still between creation and settlement. The caller should surface it
	// and leave the running attempt alone.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// DeclinedError carries the provider's failure message appended to the
// intent document. Terminal for the attempt.
type DeclinedError struct {
	Message string
}

func (e DeclinedError) Error() string {
	if e.Message == "" {
		return "checkout declined"
	}
	return "checkout declined: " + e.Message
}
