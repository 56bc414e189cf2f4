package token

import (
	"context"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/x"
)

// Authorizer proves the right to act for the owner of a holding
type Authorizer interface {
	Authorize(ctx context.Context, owner loom.Address) error
}

// SignedBy authorizes the given signer, as long as it is the owner and
// the context authenticates it
func SignedBy(auth x.Authenticator, signer loom.Address) Authorizer {
	return signedBy{auth: auth, signer: signer}
}

type signedBy struct {
	auth   x.Authenticator
	signer loom.Address
}

func (s signedBy) Authorize(ctx context.Context, owner loom.Address) error {
	if !s.signer.Equals(owner) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s is not the owner", s.signer)
	}
	if !s.auth.HasAddress(ctx, s.signer) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s did not sign", s.signer)
	}
	return nil
}

// Authenticated authorizes any owner the context authenticates
func Authenticated(auth x.Authenticator) Authorizer {
	return authenticated{auth: auth}
}

type authenticated struct {
	auth x.Authenticator
}

func (a authenticated) Authorize(ctx context.Context, owner loom.Address) error {
	if !a.auth.HasAddress(ctx, owner) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s did not sign", owner)
	}
	return nil
}

// Program is the capability of a program to act for its derived
// addresses. It can only be obtained from Controller.Program.
type Program struct {
	name string
}

// Name returns the program name used as derivation domain
func (p Program) Name() string {
	return p.name
}

// Sign returns an Authorizer valid only for the derived address of
// this program with the exact bump and seeds
func (p Program) Sign(bump uint8, seeds ...[]byte) Authorizer {
	return programSignature{program: p.name, bump: bump, seeds: seeds}
}

type programSignature struct {
	program string
	bump    uint8
	seeds   [][]byte
}

func (p programSignature) Authorize(ctx context.Context, owner loom.Address) error {
	if p.program == "" {
		return errors.Wrap(errors.ErrUnauthorized, "unregistered program")
	}
	addr, err := loom.CreateDerivedAddress(p.program, p.bump, p.seeds...)
	if err != nil {
		return errors.Wrap(errors.ErrUnauthorized, err.Error())
	}
	if !addr.Equals(owner) {
		return errors.Wrapf(errors.ErrUnauthorized, "program %s cannot sign for %s", p.program, owner)
	}
	return nil
}
