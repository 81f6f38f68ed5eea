// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import "fmt"

// ErrorKind enumerates the off-chain failure kinds the miner recovers from
// locally, distinct from the registry's on-chain taxonomy (spec.md §7
// "Off-chain only").
type ErrorKind string

const (
	// KindLedgerRotated means the slot chosen for a mine/reveal round
	// rotated out of the slot-hashes ledger before submission landed.
	KindLedgerRotated ErrorKind = "LedgerRotated"

	// KindSubmissionFailed wraps a transport-level submission failure
	// (RPC error, claim PDA collision) the miner retries with fresh
	// inputs rather than surfacing.
	KindSubmissionFailed ErrorKind = "SubmissionFailed"

	// KindNonceSpaceExhausted means a worker cycled the entire 128-bit
	// nonce space for one (slot, batch) pair without meeting difficulty.
	// This never happens in practice but bounds the search loop.
	KindNonceSpaceExhausted ErrorKind = "NonceSpaceExhausted"
)

// Error is the miner package's single error type, carrying a Kind callers
// can branch on with errors.Is rather than string-matching.
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

// Is reports whether target is an *Error with the same Kind, so sentinels
// below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newErr(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

var (
	// ErrLedgerRotated is the sentinel for KindLedgerRotated: a chosen
	// slot fell out of the ledger's retained window before the round
	// finished. No function in this package returns it.
	ErrLedgerRotated = &Error{Kind: KindLedgerRotated}

	// ErrNonceSpaceExhausted is the sentinel for KindNonceSpaceExhausted.
	// No function in this package returns it: a search worker that wraps
	// its entire nonce range without a hit reports that by returning false.
	ErrNonceSpaceExhausted = &Error{Kind: KindNonceSpaceExhausted}
)
