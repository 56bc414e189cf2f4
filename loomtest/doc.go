/*
Package loomtest provides test doubles for building handler and
decorator tests: a context based authenticator, deterministic
ed25519 keys and a bare transaction wrapping a message.
*/
package loomtest
