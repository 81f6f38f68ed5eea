// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import "github.com/holiman/uint256"

// SuggestedDifficulty computes what a target-interval-seeking retarget
// would propose, given how many solutions were actually observed since the
// last retarget and how many slots have elapsed. It does not mutate
// anything and nothing in this package calls it automatically: automated
// retargeting is a future extension, not a correctness requirement
// (spec.md §9, Open Question). An operator tool calls this to decide what
// to pass to AdjustDifficulty.
//
// The proposal scales current difficulty by the ratio of target to
// observed solution counts over the elapsed interval: more solutions than
// targeted lower the threshold (a harder proof), fewer raise it. It then
// lets AdjustDifficulty's own clamp enforce the registry's bounds.
func (r *Registry) SuggestedDifficulty(slotsElapsed uint64) uint256.Int {
	if slotsElapsed == 0 || r.TargetIntervalSlots == 0 {
		return r.CurrentDifficulty
	}
	targetSolutions := slotsElapsed / r.TargetIntervalSlots
	if targetSolutions == 0 {
		targetSolutions = 1
	}
	observed := r.SolutionsObserved
	if observed == 0 {
		observed = 1
	}

	cur := r.CurrentDifficulty
	proposed := new(uint256.Int).Mul(&cur, uint256.NewInt(targetSolutions))
	proposed.Div(proposed, uint256.NewInt(observed))
	return *proposed
}
