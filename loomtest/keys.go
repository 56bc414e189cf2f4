package loomtest

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/ed25519"

	"github.com/iov-one/loom"
)

// Key is an ed25519 key pair used to sign test transactions
type Key struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// Address returns the identity of the key holder
func (k Key) Address() loom.Address {
	return loom.Address(append([]byte(nil), k.Public...))
}

// Sign signs given message
func (k Key) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// NewKey returns a deterministic key pair derived from the seed name.
// The same name always produces the same key.
func NewKey(name string) Key {
	seed := sha256.Sum256([]byte("loomtest:" + name))
	pub, priv, err := ed25519.GenerateKey(bytes.NewReader(seed[:]))
	if err != nil {
		panic(fmt.Sprintf("cannot generate key: %s", err))
	}
	return Key{Private: priv, Public: pub}
}

// NewAddress returns a user address (a public key) for the name
func NewAddress(name string) loom.Address {
	return NewKey(name).Address()
}
