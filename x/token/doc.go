/*
Package token is a fungible token ledger.

Every Mint describes one asset. Balances are kept in Holdings, each
owned by exactly one address and holding exactly one mint. Moving
tokens out of a holding or closing it requires an Authorizer that
covers the holding owner: either an authenticated signer or a
program capability proving the owner is a derived address of that
program.
*/
package token
