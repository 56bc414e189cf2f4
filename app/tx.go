package app

import (
	amino "github.com/tendermint/go-amino"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/x/sigs"
)

// cdc encodes transactions and query results. Every message that can be
// carried by a Tx must be registered with RegisterMsg before the first
// transaction is decoded.
var cdc = amino.NewCodec()

func init() {
	cdc.RegisterInterface((*loom.Msg)(nil), nil)
}

// RegisterMsg makes msg a known variant of the transaction message.
// The name must be unique and stable, it is part of the wire format.
func RegisterMsg(msg loom.Msg, name string) {
	cdc.RegisterConcrete(msg, name, nil)
}

// Tx is the transaction format of the chain: one message and the
// signatures authorizing it.
type Tx struct {
	Msg        loom.Msg
	Signatures []*sigs.StdSignature
}

var _ loom.Tx = (*Tx)(nil)
var _ sigs.SignedTx = (*Tx)(nil)

// GetMsg returns the single message of this transaction
func (tx *Tx) GetMsg() (loom.Msg, error) {
	if tx.Msg == nil {
		return nil, errors.Wrap(errors.ErrInvalidMsg, "no message")
	}
	return tx.Msg, nil
}

// GetSignatures returns all signatures attached to this transaction
func (tx *Tx) GetSignatures() []*sigs.StdSignature {
	return tx.Signatures
}

// GetSignBytes encodes the transaction without signatures
func (tx *Tx) GetSignBytes() ([]byte, error) {
	unsigned := Tx{Msg: tx.Msg}
	bz, err := cdc.MarshalBinaryBare(unsigned)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return bz, nil
}

// Marshal encodes the transaction for broadcasting
func (tx *Tx) Marshal() ([]byte, error) {
	bz, err := cdc.MarshalBinaryBare(*tx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return bz, nil
}

// Unmarshal decodes a transaction produced by Marshal
func (tx *Tx) Unmarshal(bz []byte) error {
	*tx = Tx{}
	if err := cdc.UnmarshalBinaryBare(bz, tx); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	return nil
}

// TxDecoder parses raw transaction bytes into a Tx
func TxDecoder(bz []byte) (loom.Tx, error) {
	if len(bz) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "transaction")
	}
	tx := new(Tx)
	if err := tx.Unmarshal(bz); err != nil {
		return nil, err
	}
	return tx, nil
}

var _ loom.TxDecoder = TxDecoder
