package escrow

import (
	"context"

	cmn "github.com/tendermint/tendermint/libs/common"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/orm"
	"github.com/iov-one/loom/x"
	"github.com/iov-one/loom/x/token"
)

// RegisterRoutes will instantiate and register all handlers in this
// package. It obtains the escrow program capability from the token
// controller, so it can be called only once per controller.
func RegisterRoutes(r loom.Registry, auth x.Authenticator, tokens *token.Controller) {
	bucket := NewBucket()
	program := tokens.Program(ProgramName)

	r.Handle(&InitializeMsg{}, InitializeHandler{auth: auth, bucket: bucket, tokens: tokens, program: program})
	r.Handle(&AcceptMsg{}, AcceptHandler{auth: auth, bucket: bucket, tokens: tokens, program: program})
	r.Handle(&CancelMsg{}, CancelHandler{auth: auth, bucket: bucket, tokens: tokens, program: program})
}

// RegisterQuery will register this bucket as "/escrows" and the seller
// index as "/escrows/seller"
func RegisterQuery(qr loom.QueryRouter) {
	NewBucket().Register("escrows", qr)
}

func escrowTags(authority loom.Address) []cmn.KVPair {
	return []cmn.KVPair{{Key: []byte("escrow"), Value: []byte(authority.String())}}
}

// InitializeHandler opens an offer and locks the offered tokens in a
// new vault
type InitializeHandler struct {
	auth    x.Authenticator
	bucket  Bucket
	tokens  *token.Controller
	program token.Program
}

var _ loom.Handler = InitializeHandler{}

// Check just verifies it is properly formed
func (h InitializeHandler) Check(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver opens the vault, stores the record and moves the offered
// tokens into the vault. Result data is the escrow authority.
func (h InitializeHandler) Deliver(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, authority, bump, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	vault, err := VaultAddress(msg.Seller)
	if err != nil {
		return nil, err
	}
	if _, err := h.tokens.OpenFor(ctx, db, h.program, msg.Seller, vault, msg.XMint, authority); err != nil {
		return nil, errors.Wrap(err, "cannot open vault")
	}

	escrow := &Escrow{
		Seller:        msg.Seller,
		Bump:          bump,
		Vault:         vault,
		DesiredMint:   msg.DesiredMint,
		DesiredAmount: msg.DesiredAmount,
	}
	if err := h.bucket.Create(db, orm.NewSimpleObj(authority, escrow)); err != nil {
		return nil, errors.Wrap(err, "cannot store escrow")
	}

	seller := token.SignedBy(h.auth, msg.Seller)
	if err := h.tokens.Deposit(ctx, db, h.program, msg.SellerXHolding, vault, msg.XAmount, seller); err != nil {
		return nil, errors.Wrap(err, "cannot fill vault")
	}

	loom.GetLogger(ctx).Info("escrow opened",
		"escrow", authority,
		"seller", msg.Seller,
		"amount", msg.XAmount,
		"desired", msg.DesiredAmount)
	return &loom.DeliverResult{Data: authority, Tags: escrowTags(authority)}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h InitializeHandler) validate(ctx context.Context, db loom.KVStore, tx loom.Tx) (*InitializeMsg, loom.Address, uint8, error) {
	var msg InitializeMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, nil, 0, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Seller) {
		return nil, nil, 0, errors.Wrap(errors.ErrUnauthorized, "seller must sign")
	}

	if _, err := h.tokens.GetMint(db, msg.XMint); err != nil {
		return nil, nil, 0, errors.Wrap(err, "x mint")
	}
	if _, err := h.tokens.GetMint(db, msg.DesiredMint); err != nil {
		return nil, nil, 0, errors.Wrap(err, "desired mint")
	}

	src, err := h.tokens.Get(db, msg.SellerXHolding)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "seller x holding")
	}
	if !src.Owner.Equals(msg.Seller) {
		return nil, nil, 0, errors.Wrap(errors.ErrMismatch, "seller x holding is not owned by the seller")
	}
	if !src.Mint.Equals(msg.XMint) {
		return nil, nil, 0, errors.Wrap(errors.ErrMismatch, "seller x holding is not of x mint")
	}
	if src.Amount < msg.XAmount {
		return nil, nil, 0, errors.Wrapf(errors.ErrInsufficientAmount, "holding %d, offered %d", src.Amount, msg.XAmount)
	}

	authority, bump, err := Authority(msg.Seller)
	if err != nil {
		return nil, nil, 0, err
	}
	exists, err := h.bucket.Has(db, authority)
	if err != nil {
		return nil, nil, 0, err
	}
	if exists {
		return nil, nil, 0, errors.Wrap(errors.ErrDuplicate, "seller already has an open escrow")
	}
	return &msg, authority, bump, nil
}

// AcceptHandler settles an offer for the buyer
type AcceptHandler struct {
	auth    x.Authenticator
	bucket  Bucket
	tokens  *token.Controller
	program token.Program
}

var _ loom.Handler = AcceptHandler{}

// Check just verifies it is properly formed
func (h AcceptHandler) Check(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver swaps the vault content against the desired amount, closes the
// vault and destroys the record.
func (h AcceptHandler) Deliver(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, escrow, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	locked, err := h.tokens.Balance(db, escrow.Vault)
	if err != nil {
		return nil, err
	}
	vault := vaultSigner(h.program, escrow)
	if err := h.tokens.Transfer(ctx, db, escrow.Vault, msg.BuyerReceive, locked, vault); err != nil {
		return nil, errors.Wrap(err, "cannot release vault")
	}
	buyer := token.SignedBy(h.auth, msg.Buyer)
	if err := h.tokens.Transfer(ctx, db, msg.BuyerPayment, msg.SellerPayout, escrow.DesiredAmount, buyer); err != nil {
		return nil, errors.Wrap(err, "cannot pay seller")
	}
	if err := h.tokens.Close(ctx, db, escrow.Vault, escrow.Seller, vault); err != nil {
		return nil, errors.Wrap(err, "cannot close vault")
	}
	if err := h.bucket.Delete(db, msg.Escrow); err != nil {
		return nil, err
	}

	loom.GetLogger(ctx).Info("escrow settled",
		"escrow", msg.Escrow,
		"seller", escrow.Seller,
		"buyer", msg.Buyer,
		"amount", locked)
	return &loom.DeliverResult{Tags: escrowTags(msg.Escrow)}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h AcceptHandler) validate(ctx context.Context, db loom.KVStore, tx loom.Tx) (*AcceptMsg, *Escrow, error) {
	var msg AcceptMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Buyer) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "buyer must sign")
	}

	escrow, err := h.bucket.GetEscrow(db, msg.Escrow)
	if err != nil {
		return nil, nil, err
	}
	if err := verifyAuthority(msg.Escrow, escrow); err != nil {
		return nil, nil, err
	}
	vault, err := loadVault(db, h.tokens, escrow, msg.Vault)
	if err != nil {
		return nil, nil, err
	}

	payout, err := h.tokens.Get(db, msg.SellerPayout)
	if err != nil {
		return nil, nil, errors.Wrap(err, "seller payout")
	}
	if !payout.Mint.Equals(escrow.DesiredMint) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "seller payout is not of the desired mint")
	}
	if !payout.Owner.Equals(escrow.Seller) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "seller payout is not owned by the seller")
	}

	if msg.BuyerReceive.Equals(escrow.Vault) {
		return nil, nil, errors.Wrap(errors.ErrInput, "buyer receive cannot be the vault")
	}
	receive, err := h.tokens.Get(db, msg.BuyerReceive)
	if err != nil {
		return nil, nil, errors.Wrap(err, "buyer receive")
	}
	if !receive.Mint.Equals(vault.Mint) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "buyer receive is not of the vault mint")
	}

	payment, err := h.tokens.Get(db, msg.BuyerPayment)
	if err != nil {
		return nil, nil, errors.Wrap(err, "buyer payment")
	}
	if !payment.Owner.Equals(msg.Buyer) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "buyer payment is not owned by the buyer")
	}
	if !payment.Mint.Equals(escrow.DesiredMint) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "buyer payment is not of the desired mint")
	}
	if payment.Amount < escrow.DesiredAmount {
		return nil, nil, errors.Wrapf(errors.ErrInsufficientAmount, "holding %d, desired %d", payment.Amount, escrow.DesiredAmount)
	}
	return &msg, escrow, nil
}

// CancelHandler returns the offered tokens to the seller
type CancelHandler struct {
	auth    x.Authenticator
	bucket  Bucket
	tokens  *token.Controller
	program token.Program
}

var _ loom.Handler = CancelHandler{}

// Check just verifies it is properly formed
func (h CancelHandler) Check(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &loom.CheckResult{}, nil
}

// Deliver drains and closes the vault and destroys the record
func (h CancelHandler) Deliver(ctx context.Context, db loom.KVStore, tx loom.Tx) (*loom.DeliverResult, error) {
	msg, escrow, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}

	locked, err := h.tokens.Balance(db, escrow.Vault)
	if err != nil {
		return nil, err
	}
	vault := vaultSigner(h.program, escrow)
	if err := h.tokens.Transfer(ctx, db, escrow.Vault, msg.SellerReceive, locked, vault); err != nil {
		return nil, errors.Wrap(err, "cannot release vault")
	}
	if err := h.tokens.Close(ctx, db, escrow.Vault, escrow.Seller, vault); err != nil {
		return nil, errors.Wrap(err, "cannot close vault")
	}
	if err := h.bucket.Delete(db, msg.Escrow); err != nil {
		return nil, err
	}

	loom.GetLogger(ctx).Info("escrow cancelled",
		"escrow", msg.Escrow,
		"seller", escrow.Seller,
		"amount", locked)
	return &loom.DeliverResult{Tags: escrowTags(msg.Escrow)}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CancelHandler) validate(ctx context.Context, db loom.KVStore, tx loom.Tx) (*CancelMsg, *Escrow, error) {
	var msg CancelMsg
	if err := loom.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Seller) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "seller must sign")
	}

	escrow, err := h.bucket.GetEscrow(db, msg.Escrow)
	if err != nil {
		return nil, nil, err
	}
	if !escrow.Seller.Equals(msg.Seller) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "not the seller of this escrow")
	}
	if err := verifyAuthority(msg.Escrow, escrow); err != nil {
		return nil, nil, err
	}
	vault, err := loadVault(db, h.tokens, escrow, msg.Vault)
	if err != nil {
		return nil, nil, err
	}

	receive, err := h.tokens.Get(db, msg.SellerReceive)
	if err != nil {
		return nil, nil, errors.Wrap(err, "seller receive")
	}
	if !receive.Owner.Equals(escrow.Seller) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "seller receive is not owned by the seller")
	}
	if !receive.Mint.Equals(vault.Mint) {
		return nil, nil, errors.Wrap(errors.ErrMismatch, "seller receive is not of the vault mint")
	}
	return &msg, escrow, nil
}

// loadVault returns the vault holding of the record, ensuring it is the
// one referenced by the message
func loadVault(db loom.ReadOnlyKVStore, tokens *token.Controller, escrow *Escrow, ref loom.Address) (*token.Holding, error) {
	if !ref.Equals(escrow.Vault) {
		return nil, errors.Wrap(errors.ErrMismatch, "vault does not belong to the escrow")
	}
	vault, err := tokens.Get(db, escrow.Vault)
	if err != nil {
		return nil, errors.Wrap(err, "vault")
	}
	return vault, nil
}
