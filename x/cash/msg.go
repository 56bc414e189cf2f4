package cash

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
)

const pathSendMsg = "cash/send"

// SendMsg moves native balance from the signer to another address
type SendMsg struct {
	Src    loom.Address `json:"src"`
	Dest   loom.Address `json:"dest"`
	Amount uint64       `json:"amount"`
}

var _ loom.Msg = (*SendMsg)(nil)

// Path returns the routing path for this message
func (SendMsg) Path() string {
	return pathSendMsg
}

// Validate makes sure that this is sensible
func (m *SendMsg) Validate() error {
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "non-positive send")
	}
	if err := m.Src.Validate(); err != nil {
		return errors.Wrap(err, "src")
	}
	if err := m.Dest.Validate(); err != nil {
		return errors.Wrap(err, "dest")
	}
	return nil
}
