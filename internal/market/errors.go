package market

import "errors"

// Every operation either fully commits or leaves no observable effect; these
// errors are terminal for the invocation that hit them.
var (
	// ErrItemNotFound is returned when the referenced item does not exist
	// (never listed, or already consumed by a claim).
	ErrItemNotFound = errors.New("item not found")

	// ErrItemNotAvailable is returned when purchasing an item whose active
	// flag is cleared. No included operation clears the flag, so this is
	// currently unreachable; it is kept because the flag is part of the
	// item's contract.
	ErrItemNotAvailable = errors.New("item not available")

	// ErrListingExpired is returned when the pricing window would be
	// negative, i.e. the current time is past the item's expiration.
	ErrListingExpired = errors.New("listing expired")

	// ErrInsufficientPayment is returned when the offered payment does not
	// cover the computed price.
	ErrInsufficientPayment = errors.New("payment below price")

	// ErrInsufficientFunds is returned by Funds.Split when the requested
	// amount exceeds the container's value, and by purchase when the
	// buyer's wallet cannot cover the offered payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBalanceOverflow is returned by MergeFunds instead of wrapping
	// around on uint64 overflow.
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrInvalidCap is returned when the presented capability does not
	// exist.
	ErrInvalidCap = errors.New("unknown provider capability")

	// ErrCapMismatch is returned when the presented capability is bound to
	// a different item.
	ErrCapMismatch = errors.New("capability bound to a different item")
)
