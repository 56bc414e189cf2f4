package cash

import (
	"context"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/x"
)

// RegisterQuery will register this bucket as "/wallets"
func RegisterQuery(qr loom.QueryRouter) {
	NewBucket().Register("wallets", qr)
}

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r loom.Registry, auth x.Authenticator, control Controller) {
	r.Handle(&SendMsg{}, NewSendHandler(auth, control))
}

// SendHandler will handle sending coins
type SendHandler struct {
	auth    x.Authenticator
	control Controller
}

var _ loom.Handler = SendHandler{}

// NewSendHandler creates a handler for SendMsg
func NewSendHandler(auth x.Authenticator, control Controller) SendHandler {
	return SendHandler{
		auth:    auth,
		control: control,
	}
}

// Check just verifies it is properly formed and returns
// the cost of executing it
func (h SendHandler) Check(ctx context.Context, store loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, err := h.validate(ctx, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver moves the tokens from sender to receiver if
// all preconditions are met
func (h SendHandler) Deliver(ctx context.Context, store loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, err := h.validate(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := h.control.MoveCoins(store, msg.Src, msg.Dest, msg.Amount); err != nil {
		return nil, err
	}
	return &loom.DeliverResult{}, nil
}

func (h SendHandler) validate(ctx context.Context, tx loom.Tx) (*SendMsg, error) {
	var msg SendMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Src) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "sender must sign")
	}
	return &msg, nil
}
