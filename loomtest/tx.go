package loomtest

import "github.com/iov-one/loom"

// Tx represents a loom transaction.
//
// Use this structure to represent a transaction that must be processed by
// a handler or a decorator.
type Tx struct {
	// Msg is the message that is to be processed by this transaction.
	Msg loom.Msg

	// Err if set is returned by any method call.
	Err error
}

var _ loom.Tx = (*Tx)(nil)

// GetMsg returns the message or the configured error
func (tx *Tx) GetMsg() (loom.Msg, error) {
	if tx.Err != nil {
		return nil, tx.Err
	}
	return tx.Msg, nil
}
