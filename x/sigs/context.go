package sigs

import (
	"context"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/x"
)

type contextKey int // local to the sigs module

const (
	contextKeySigners contextKey = iota
)

// withSigners is a private method, as only this module
// can add a signer
func withSigners(ctx context.Context, signers []loom.Address) context.Context {
	return context.WithValue(ctx, contextKeySigners, signers)
}

// Authenticate gives access to the signers verified by the Decorator
type Authenticate struct{}

var _ x.Authenticator = Authenticate{}

// Signers returns who signed the current Context.
// May be empty
func (a Authenticate) Signers(ctx context.Context) []loom.Address {
	// (val, ok) form to return nil instead of panic if unset
	val, _ := ctx.Value(contextKeySigners).([]loom.Address)
	return val
}

// HasAddress returns true if the address signed the current Context.
func (a Authenticate) HasAddress(ctx context.Context, addr loom.Address) bool {
	for _, s := range a.Signers(ctx) {
		if addr.Equals(s) {
			return true
		}
	}
	return false
}
