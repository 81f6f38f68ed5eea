// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

// transition enforces the total, monotonic state table from spec.md §4.3:
//
//	Mined    -> Revealed  (reveal_claim within window)
//	Mined    -> Expired   (observed past reveal_window while still Mined)
//	Revealed -> Consumed  (consumed_count reaches max_consumes)
//	Revealed -> Expired   (observed past expires_at_slot)
//	Consumed, Expired are terminal.
//
// No other transition is legal; callers that need a transition not in this
// table have a bug, not a reachable error case, so transition panics on an
// illegal edge rather than returning a registry.Error -- every call site in
// this package only invokes it after already deciding the edge is legal.
func (c *Claim) transition(to Status) {
	switch {
	case c.Status == StatusMined && to == StatusRevealed:
	case c.Status == StatusMined && to == StatusExpired:
	case c.Status == StatusRevealed && to == StatusConsumed:
	case c.Status == StatusRevealed && to == StatusExpired:
	case c.Status == to:
		// no-op transitions are harmless but should never be requested
		return
	default:
		panic("registry: illegal claim status transition " + c.Status.String() + " -> " + to.String())
	}
	c.Status = to
}

// expiredByReveal reports whether a Mined claim observed at currentSlot has
// run out its reveal window (spec.md §4.3, Mined -> Expired edge).
func (c *Claim) expiredByReveal(currentSlot, revealWindow uint64) bool {
	return c.Status == StatusMined && currentSlot > c.MinedAtSlot+revealWindow
}

// expiredByClaimWindow reports whether a Revealed claim observed at
// currentSlot has run past its claim window (spec.md §4.3, Revealed ->
// Expired edge).
func (c *Claim) expiredByClaimWindow(currentSlot uint64) bool {
	return c.Status == StatusRevealed && currentSlot > c.ExpiresAtSlot
}
