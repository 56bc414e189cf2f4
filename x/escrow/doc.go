/*
Package escrow implements a non-custodial two-party swap.

A seller locks tokens of one mint in a vault holding and asks for an amount
of another mint in exchange. The vault is owned by an authority derived from
the seller address. That authority has no private key, only this package can
sign for it through the token program capability it obtains at wiring time.

Any buyer may accept the offer: the vault content goes to the buyer and the
asked amount goes to the seller, in one transaction. The seller may cancel
the offer and take the tokens back. Both close the vault and destroy the
record, so a settled offer cannot be accepted or cancelled again.
*/
package escrow
