package token

import (
	"context"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/x"
)

// RegisterQuery registers mints as "/mints" and holdings as
// "/holdings" and "/holdings/owner"
func RegisterQuery(qr loom.QueryRouter) {
	NewMintBucket().Register("mints", qr)
	NewHoldingBucket().Register("holdings", qr)
}

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r loom.Registry, auth x.Authenticator, ctrl *Controller) {
	r.Handle(&OpenHoldingMsg{}, &OpenHoldingHandler{auth: auth, ctrl: ctrl})
	r.Handle(&TransferMsg{}, &TransferHandler{auth: auth, ctrl: ctrl})
	r.Handle(&CloseHoldingMsg{}, &CloseHoldingHandler{auth: auth, ctrl: ctrl})
}

// OpenHoldingHandler opens the associated holding of the signer
type OpenHoldingHandler struct {
	auth x.Authenticator
	ctrl *Controller
}

var _ loom.Handler = (*OpenHoldingHandler)(nil)

// Check validates the message and that the holding does not exist yet
func (h *OpenHoldingHandler) Check(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver opens the holding, result data is the holding address
func (h *OpenHoldingHandler) Deliver(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, addr, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if _, err := h.ctrl.Open(ctx, db, msg.Owner, addr, msg.Mint, msg.Owner); err != nil {
		return nil, err
	}
	return &loom.DeliverResult{Data: addr}, nil
}

func (h *OpenHoldingHandler) validate(ctx context.Context, db loom.KVStore, tx loom.Tx) (*OpenHoldingMsg, loom.Address, error) {
	var msg OpenHoldingMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Owner) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner must sign")
	}
	if _, err := h.ctrl.GetMint(db, msg.Mint); err != nil {
		return nil, nil, err
	}
	addr, err := AssociatedAddress(msg.Owner, msg.Mint)
	if err != nil {
		return nil, nil, err
	}
	return &msg, addr, nil
}

// TransferHandler moves tokens out of a holding owned by the signer
type TransferHandler struct {
	auth x.Authenticator
	ctrl *Controller
}

var _ loom.Handler = (*TransferHandler)(nil)

// Check validates the message
func (h *TransferHandler) Check(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver moves the tokens
func (h *TransferHandler) Deliver(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.ctrl.Transfer(ctx, db, msg.Src, msg.Dest, msg.Amount, Authenticated(h.auth)); err != nil {
		return nil, err
	}
	return &loom.DeliverResult{}, nil
}

func (h *TransferHandler) validate(ctx context.Context, db loom.KVStore, tx loom.Tx) (*TransferMsg, error) {
	var msg TransferMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	src, err := h.ctrl.Get(db, msg.Src)
	if err != nil {
		return nil, err
	}
	if err := Authenticated(h.auth).Authorize(ctx, src.Owner); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CloseHoldingHandler closes an empty holding owned by the signer
type CloseHoldingHandler struct {
	auth x.Authenticator
	ctrl *Controller
}

var _ loom.Handler = (*CloseHoldingHandler)(nil)

// Check validates the message and the holding state
func (h *CloseHoldingHandler) Check(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver closes the holding
func (h *CloseHoldingHandler) Deliver(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.ctrl.Close(ctx, db, msg.Holding, msg.Recipient, Authenticated(h.auth)); err != nil {
		return nil, err
	}
	return &loom.DeliverResult{}, nil
}

func (h *CloseHoldingHandler) validate(ctx context.Context, db loom.KVStore, tx loom.Tx) (*CloseHoldingMsg, error) {
	var msg CloseHoldingMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	holding, err := h.ctrl.Get(db, msg.Holding)
	if err != nil {
		return nil, err
	}
	if err := Authenticated(h.auth).Authorize(ctx, holding.Owner); err != nil {
		return nil, err
	}
	if holding.Amount != 0 {
		return nil, errors.Wrapf(errors.ErrState, "holding still has %d tokens", holding.Amount)
	}
	return &msg, nil
}
