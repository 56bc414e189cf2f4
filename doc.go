/*
Package loom defines the common interfaces that tie the ledger together,
as well as implementations of the simpler components (when interfaces
would be too much overhead).

Identities are 32 byte addresses. An end user address is an ed25519 public
key. A derived address is computed from seed material and a program name and
is guaranteed not to be a curve point, so it has no private key: only the
program that owns the derivation can authorize anything on its behalf.

We pass context through context.Context between app, middleware, and
handlers. There exist two functions for every XYZ of type T that we want to
support in Context:

  WithXYZ(Context, T) Context
  GetXYZ(Context) (val T, ok bool)

WithXYZ panics if the value was previously set, to avoid lower-level modules
overwriting the value (eg. height, chain id).
*/
package loom
