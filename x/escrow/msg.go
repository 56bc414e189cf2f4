package escrow

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
)

const (
	pathInitializeMsg = "escrow/initialize"
	pathAcceptMsg     = "escrow/accept"
	pathCancelMsg     = "escrow/cancel"
)

// InitializeMsg opens an offer: XAmount of XMint taken from
// SellerXHolding for DesiredAmount of DesiredMint.
type InitializeMsg struct {
	Seller         loom.Address `json:"seller"`
	XMint          loom.Address `json:"x_mint"`
	DesiredMint    loom.Address `json:"desired_mint"`
	SellerXHolding loom.Address `json:"seller_x_holding"`
	XAmount        uint64       `json:"x_amount"`
	DesiredAmount  uint64       `json:"desired_amount"`
}

var _ loom.Msg = (*InitializeMsg)(nil)

// Path returns the routing path for this message
func (InitializeMsg) Path() string {
	return pathInitializeMsg
}

// Validate makes sure that this is sensible
func (m *InitializeMsg) Validate() error {
	if m.XAmount == 0 {
		return errors.Wrap(errors.ErrInput, "x amount must be positive")
	}
	if m.DesiredAmount == 0 {
		return errors.Wrap(errors.ErrInput, "desired amount must be positive")
	}
	return validateAddresses([]namedAddress{
		{"seller", m.Seller},
		{"x mint", m.XMint},
		{"desired mint", m.DesiredMint},
		{"seller x holding", m.SellerXHolding},
	})
}

// AcceptMsg settles the offer stored under Escrow. The buyer pays from
// BuyerPayment to SellerPayout and receives the vault content in
// BuyerReceive.
type AcceptMsg struct {
	Buyer        loom.Address `json:"buyer"`
	Escrow       loom.Address `json:"escrow"`
	Vault        loom.Address `json:"vault"`
	SellerPayout loom.Address `json:"seller_payout"`
	BuyerReceive loom.Address `json:"buyer_receive"`
	BuyerPayment loom.Address `json:"buyer_payment"`
}

var _ loom.Msg = (*AcceptMsg)(nil)

// Path returns the routing path for this message
func (AcceptMsg) Path() string {
	return pathAcceptMsg
}

// Validate makes sure that this is sensible
func (m *AcceptMsg) Validate() error {
	return validateAddresses([]namedAddress{
		{"buyer", m.Buyer},
		{"escrow", m.Escrow},
		{"vault", m.Vault},
		{"seller payout", m.SellerPayout},
		{"buyer receive", m.BuyerReceive},
		{"buyer payment", m.BuyerPayment},
	})
}

// CancelMsg returns the vault content to SellerReceive and removes
// the offer.
type CancelMsg struct {
	Seller        loom.Address `json:"seller"`
	Escrow        loom.Address `json:"escrow"`
	Vault         loom.Address `json:"vault"`
	SellerReceive loom.Address `json:"seller_receive"`
}

var _ loom.Msg = (*CancelMsg)(nil)

// Path returns the routing path for this message
func (CancelMsg) Path() string {
	return pathCancelMsg
}

// Validate makes sure that this is sensible
func (m *CancelMsg) Validate() error {
	return validateAddresses([]namedAddress{
		{"seller", m.Seller},
		{"escrow", m.Escrow},
		{"vault", m.Vault},
		{"seller receive", m.SellerReceive},
	})
}

type namedAddress struct {
	name string
	addr loom.Address
}

// validateAddresses reports the first invalid address in order
func validateAddresses(addrs []namedAddress) error {
	for _, a := range addrs {
		if err := a.addr.Validate(); err != nil {
			return errors.Wrap(err, a.name)
		}
	}
	return nil
}
