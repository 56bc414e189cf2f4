/*
Package cash keeps the native balance of every address.

The native balance pays the storage deposit of token holdings.
Controller moves and issues it, SendMsg lets a signer pay another
address.
*/
package cash
