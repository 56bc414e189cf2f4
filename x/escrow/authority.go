package escrow

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/x/token"
)

// ProgramName is the name under which escrow derives its addresses and
// signs for them.
const ProgramName = "escrow"

var (
	authoritySeed = []byte("escrow")
	vaultSeed     = []byte("vault")
)

// Authority derives the escrow authority of a seller together with
// the bump needed to recreate it.
func Authority(seller loom.Address) (loom.Address, uint8, error) {
	return loom.FindDerivedAddress(ProgramName, authoritySeed, seller)
}

// VaultAddress is the holding address that keeps the tokens offered by
// the seller.
func VaultAddress(seller loom.Address) (loom.Address, error) {
	addr, _, err := loom.FindDerivedAddress(ProgramName, vaultSeed, seller)
	return addr, err
}

// verifyAuthority recreates the authority from the record and ensures
// it is the key the record was loaded from.
func verifyAuthority(key loom.Address, e *Escrow) error {
	addr, err := loom.CreateDerivedAddress(ProgramName, e.Bump, authoritySeed, e.Seller)
	if err != nil {
		return errors.Wrap(errors.ErrUnauthorized, err.Error())
	}
	if !addr.Equals(key) {
		return errors.Wrapf(errors.ErrUnauthorized, "%s is not the authority of the seller", key)
	}
	return nil
}

// vaultSigner authorizes transfers out of the vault of the record
func vaultSigner(program token.Program, e *Escrow) token.Authorizer {
	return program.Sign(e.Bump, authoritySeed, e.Seller)
}
