package sigs

import "github.com/iov-one/loom/errors"

// x/sigs reserves 120 ~ 129.
var (
	// ErrInvalidSequence is returned when a signature carries a sequence
	// different from the one stored for the signer
	ErrInvalidSequence = errors.Register(120, "invalid sequence number")
)
