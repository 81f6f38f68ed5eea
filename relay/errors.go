// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import "fmt"

// ErrorKind enumerates the relay's own failure kinds, distinct from the
// registry's on-chain taxonomy (spec.md §7 "Off-chain only").
type ErrorKind string

const (
	// KindNoClaimAvailable means the finder's scan produced no candidate
	// claim matching the job's filter (spec.md §4.5 step 6).
	KindNoClaimAvailable ErrorKind = "NoClaimAvailable"
)

// Error is the relay package's single error type.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ErrNoClaimAvailable is returned by Finder.Select when no candidate claim
// in the scan survives the filter.
var ErrNoClaimAvailable = &Error{Kind: KindNoClaimAvailable}
