package market

// DiscountWindow is how close to expiration (in seconds) an item must be
// for the half-price discount to apply. The boundary is inclusive: an item
// at its exact expiration moment is still discounted, not expired.
const DiscountWindow = 86400

// Price computes the effective price of an item at the given time. Within
// DiscountWindow seconds of expiration the base price is halved (floor
// division); otherwise it is unchanged. A current time past the expiration
// fails with ErrListingExpired rather than producing a negative window.
//
// Pure and deterministic: the caller supplies the clock.
func Price(basePrice, expiresAt, now uint64) (uint64, error) {
	if now > expiresAt {
		return 0, ErrListingExpired
	}

	if expiresAt-now <= DiscountWindow {
		return basePrice / 2, nil
	}
	return basePrice, nil
}
