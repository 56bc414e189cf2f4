package loom

import (
	"crypto/sha256"

	"github.com/agl/ed25519/edwards25519"
	"github.com/iov-one/loom/errors"
)

const (
	// MaxSeeds is the maximum number of seeds a derived address can be
	// computed from.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32
)

// derivedMarker separates derived address preimages from any other hash
// computed over similar data.
var derivedMarker = []byte("loom/derived")

// FindDerivedAddress searches for the canonical derived address of program
// for the given seeds. It tries every bump starting from 255 and returns the
// first address that does not lie on the ed25519 curve, together with the
// bump that produced it. The pair can be recomputed by anyone with
// CreateDerivedAddress.
func FindDerivedAddress(program string, seeds ...[]byte) (Address, uint8, error) {
	if err := validateSeeds(program, seeds); err != nil {
		return nil, 0, err
	}
	for bump := 255; bump >= 0; bump-- {
		addr := derivedHash(program, uint8(bump), seeds)
		if !onCurve(addr) {
			return addr, uint8(bump), nil
		}
	}
	return nil, 0, errors.Wrap(errors.ErrState, "no viable bump")
}

// CreateDerivedAddress recomputes the derived address for an exact bump. It
// fails if the result is a curve point, since such an address could be
// controlled by a private key.
func CreateDerivedAddress(program string, bump uint8, seeds ...[]byte) (Address, error) {
	if err := validateSeeds(program, seeds); err != nil {
		return nil, err
	}
	addr := derivedHash(program, bump, seeds)
	if onCurve(addr) {
		return nil, errors.Wrapf(errors.ErrInput, "bump %d derives a curve point", bump)
	}
	return addr, nil
}

func validateSeeds(program string, seeds [][]byte) error {
	if program == "" {
		return errors.Wrap(errors.ErrInput, "program required")
	}
	if len(seeds) > MaxSeeds {
		return errors.Wrapf(errors.ErrInput, "too many seeds: %d", len(seeds))
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return errors.Wrapf(errors.ErrInput, "seed %d too long: %d", i, len(s))
		}
	}
	return nil
}

func derivedHash(program string, bump uint8, seeds [][]byte) Address {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write([]byte(program))
	h.Write(derivedMarker)
	return h.Sum(nil)
}

// onCurve reports whether the bytes decode to a point on the ed25519 curve.
func onCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	var buf [32]byte
	copy(buf[:], b)
	var p edwards25519.ExtendedGroupElement
	return p.FromBytes(&buf)
}
