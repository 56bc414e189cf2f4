package loomtest

import (
	"context"
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/iov-one/loom/loomtest/assert"
)

func TestNewKeyDeterministic(t *testing.T) {
	a := NewKey("alice")
	assert.Equal(t, a.Public, NewKey("alice").Public)
	if NewAddress("alice").Equals(NewAddress("bob")) {
		t.Fatal("different names must give different keys")
	}
	msg := []byte("hello")
	if !ed25519.Verify(a.Public, msg, a.Sign(msg)) {
		t.Fatal("signature must verify")
	}
}

func TestCtxAuth(t *testing.T) {
	auth := &CtxAuth{Key: "auth"}
	alice, bob := NewAddress("alice"), NewAddress("bob")
	ctx := auth.SetSigners(context.Background(), alice)
	if !auth.HasAddress(ctx, alice) {
		t.Fatal("alice must be authenticated")
	}
	if auth.HasAddress(ctx, bob) {
		t.Fatal("bob must not be authenticated")
	}
	if auth.HasAddress(context.Background(), alice) {
		t.Fatal("empty context authenticates nobody")
	}
}
