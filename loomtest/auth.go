package loomtest

import (
	"context"
	"fmt"

	"github.com/iov-one/loom"
)

// Auth is a mock implementing x.Authenticator interface.
//
// It authenticates the Signer and every address in Others.
type Auth struct {
	// Signer represents an authentication of a single signer.
	Signer loom.Address

	// Others represents an authentication of multiple signers.
	Others []loom.Address
}

// Signers returns all configured signers
func (a *Auth) Signers(context.Context) []loom.Address {
	if a.Signer != nil {
		return append(append([]loom.Address(nil), a.Others...), a.Signer)
	}
	return a.Others
}

// HasAddress returns true if the address is one of the configured signers
func (a *Auth) HasAddress(ctx context.Context, addr loom.Address) bool {
	for _, s := range a.Signers(ctx) {
		if addr.Equals(s) {
			return true
		}
	}
	return false
}

// CtxAuth is a mock implementing x.Authenticator interface.
//
// This implementation is using context to store and retrieve signers.
type CtxAuth struct {
	// Key used to set and retrieve signers from the context. For
	// convenience only string type keys are allowed.
	Key string
}

// SetSigners returns a context authenticating given addresses
func (a *CtxAuth) SetSigners(ctx context.Context, signers ...loom.Address) context.Context {
	return context.WithValue(ctx, a.Key, signers)
}

// Signers returns the addresses stored in the context
func (a *CtxAuth) Signers(ctx context.Context) []loom.Address {
	val := ctx.Value(a.Key)
	if val == nil {
		return nil
	}
	addrs, ok := val.([]loom.Address)
	if !ok {
		panic(fmt.Sprintf("instead of []loom.Address got %T", val))
	}
	return addrs
}

// HasAddress returns true if the address was stored in the context
func (a *CtxAuth) HasAddress(ctx context.Context, addr loom.Address) bool {
	for _, s := range a.Signers(ctx) {
		if addr.Equals(s) {
			return true
		}
	}
	return false
}
