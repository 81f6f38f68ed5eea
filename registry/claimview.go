// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

// ClaimView pairs a claim account with its derived store key, the form a
// relay's candidate scan (spec.md §4.5 step 2) actually needs: the finder
// must name the specific claim account a withdrawal's CPI will address.
type ClaimView struct {
	Key   []byte
	Claim *Claim
}

// ListClaimViews returns every claim account paired with its derived store
// key, for off-chain enumeration (the relay's finder, spec.md §4.5 step 2).
func (p *Program) ListClaimViews() ([]ClaimView, error) {
	claims, err := p.store.ListClaims()
	if err != nil {
		return nil, err
	}
	out := make([]ClaimView, 0, len(claims))
	for _, c := range claims {
		out = append(out, ClaimView{
			Key:   ClaimKey(c.MinerAuthority, c.BatchHash, c.Slot),
			Claim: c,
		})
	}
	return out, nil
}
