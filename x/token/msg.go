package token

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
)

const (
	pathOpenHoldingMsg  = "token/open"
	pathTransferMsg     = "token/transfer"
	pathCloseHoldingMsg = "token/close"
)

// OpenHoldingMsg opens the associated holding of the owner for a mint.
// The owner signs and pays the deposit.
type OpenHoldingMsg struct {
	Owner loom.Address `json:"owner"`
	Mint  loom.Address `json:"mint"`
}

var _ loom.Msg = (*OpenHoldingMsg)(nil)

// Path returns the routing path for this message
func (OpenHoldingMsg) Path() string {
	return pathOpenHoldingMsg
}

// Validate makes sure that this is sensible
func (m *OpenHoldingMsg) Validate() error {
	if err := m.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := m.Mint.Validate(); err != nil {
		return errors.Wrap(err, "mint")
	}
	return nil
}

// TransferMsg moves tokens between two holdings of the same mint.
// The owner of Src must sign.
type TransferMsg struct {
	Src    loom.Address `json:"src"`
	Dest   loom.Address `json:"dest"`
	Amount uint64       `json:"amount"`
}

var _ loom.Msg = (*TransferMsg)(nil)

// Path returns the routing path for this message
func (TransferMsg) Path() string {
	return pathTransferMsg
}

// Validate makes sure that this is sensible
func (m *TransferMsg) Validate() error {
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "non-positive transfer")
	}
	if err := m.Src.Validate(); err != nil {
		return errors.Wrap(err, "src")
	}
	if err := m.Dest.Validate(); err != nil {
		return errors.Wrap(err, "dest")
	}
	if m.Src.Equals(m.Dest) {
		return errors.Wrap(errors.ErrInput, "src and dest are the same")
	}
	return nil
}

// CloseHoldingMsg closes an empty holding, the owner must sign.
// The deposit goes to Recipient.
type CloseHoldingMsg struct {
	Holding   loom.Address `json:"holding"`
	Recipient loom.Address `json:"recipient"`
}

var _ loom.Msg = (*CloseHoldingMsg)(nil)

// Path returns the routing path for this message
func (CloseHoldingMsg) Path() string {
	return pathCloseHoldingMsg
}

// Validate makes sure that this is sensible
func (m *CloseHoldingMsg) Validate() error {
	if err := m.Holding.Validate(); err != nil {
		return errors.Wrap(err, "holding")
	}
	if err := m.Recipient.Validate(); err != nil {
		return errors.Wrap(err, "recipient")
	}
	return nil
}
