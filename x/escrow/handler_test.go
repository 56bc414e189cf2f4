package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/app"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/loomtest"
	"github.com/iov-one/loom/loomtest/assert"
	"github.com/iov-one/loom/orm"
	"github.com/iov-one/loom/store"
	"github.com/iov-one/loom/x/cash"
	"github.com/iov-one/loom/x/token"
)

const deposit = 10

var (
	seller = loomtest.NewAddress("seller")
	buyer  = loomtest.NewAddress("buyer")
	mintA  = loomtest.NewAddress("mint-a")
	mintB  = loomtest.NewAddress("mint-b")
)

type fixture struct {
	db     loom.CacheableKVStore
	auth   *loomtest.CtxAuth
	router *app.Router
	tokens *token.Controller
	cash   cash.BaseController

	sellerA, sellerB loom.Address
	buyerA, buyerB   loom.Address
}

// newFixture gives the seller 1000 A and the buyer 700 B, both own an
// empty holding of the other mint.
func newFixture(t testing.TB) *fixture {
	t.Helper()
	db := store.MemStore()

	gen := token.Genesis{
		Mints: []token.GenesisMint{{Address: mintA, Decimals: 6}, {Address: mintB, Decimals: 9}},
		Holdings: []token.GenesisHolding{
			{Owner: seller, Mint: mintA, Amount: 1000},
			{Owner: seller, Mint: mintB},
			{Owner: buyer, Mint: mintA},
			{Owner: buyer, Mint: mintB, Amount: 700},
		},
	}
	raw, err := json.Marshal(gen)
	assert.Nil(t, err)
	opts := loom.Options{
		"token": raw,
		"conf":  json.RawMessage(fmt.Sprintf(`{"token": {"holding_deposit": %d}}`, deposit)),
		"cash":  json.RawMessage(fmt.Sprintf(`[{"address": %q, "balance": 100}, {"address": %q, "balance": 100}]`, seller, buyer)),
	}
	inits := loom.ChainInitializers(cash.Initializer{}, token.Initializer{})
	assert.Nil(t, inits.FromGenesis(opts, db))

	cashCtrl := cash.NewController(cash.NewBucket())
	f := &fixture{
		db:     db,
		auth:   &loomtest.CtxAuth{Key: "auth"},
		router: app.NewRouter(),
		tokens: token.NewController(cashCtrl),
		cash:   cashCtrl,
	}
	token.RegisterRoutes(f.router, f.auth, f.tokens)
	RegisterRoutes(f.router, f.auth, f.tokens)

	f.sellerA = associated(t, seller, mintA)
	f.sellerB = associated(t, seller, mintB)
	f.buyerA = associated(t, buyer, mintA)
	f.buyerB = associated(t, buyer, mintB)
	return f
}

func associated(t testing.TB, owner, mint loom.Address) loom.Address {
	t.Helper()
	addr, err := token.AssociatedAddress(owner, mint)
	assert.Nil(t, err)
	return addr
}

// deliver runs the message the way the application does: on a cache that
// is written only on success
func (f *fixture) deliver(signer loom.Address, msg loom.Msg) (*loom.DeliverResult, error) {
	ctx := f.auth.SetSigners(context.Background(), signer)
	cache := f.db.CacheWrap()
	res, err := f.router.Deliver(ctx, cache, &loomtest.Tx{Msg: msg})
	if err != nil {
		cache.Discard()
		return nil, err
	}
	return res, cache.Write()
}

func (f *fixture) check(signer loom.Address, msg loom.Msg) error {
	ctx := f.auth.SetSigners(context.Background(), signer)
	cache := f.db.CacheWrap()
	defer cache.Discard()
	_, err := f.router.Check(ctx, cache, &loomtest.Tx{Msg: msg})
	return err
}

func (f *fixture) balance(t testing.TB, holding loom.Address) uint64 {
	t.Helper()
	got, err := f.tokens.Balance(f.db, holding)
	assert.Nil(t, err)
	return got
}

func (f *fixture) cashBalance(t testing.TB, addr loom.Address) uint64 {
	t.Helper()
	got, err := f.cash.Balance(f.db, addr)
	assert.Nil(t, err)
	return got
}

func (f *fixture) balances(t testing.TB) [4]uint64 {
	t.Helper()
	return [4]uint64{
		f.balance(t, f.sellerA), f.balance(t, f.sellerB),
		f.balance(t, f.buyerA), f.balance(t, f.buyerB),
	}
}

func (f *fixture) initialize(t testing.TB, xAmount, desired uint64) (authority, vault loom.Address) {
	t.Helper()
	msg := &InitializeMsg{
		Seller:         seller,
		XMint:          mintA,
		DesiredMint:    mintB,
		SellerXHolding: f.sellerA,
		XAmount:        xAmount,
		DesiredAmount:  desired,
	}
	assert.Nil(t, f.check(seller, msg))
	res, err := f.deliver(seller, msg)
	assert.Nil(t, err)
	vault, err = VaultAddress(seller)
	assert.Nil(t, err)
	return res.Data, vault
}

func (f *fixture) acceptMsg(authority, vault loom.Address) *AcceptMsg {
	return &AcceptMsg{
		Buyer:        buyer,
		Escrow:       authority,
		Vault:        vault,
		SellerPayout: f.sellerB,
		BuyerReceive: f.buyerA,
		BuyerPayment: f.buyerB,
	}
}

func (f *fixture) cancelMsg(authority, vault loom.Address) *CancelMsg {
	return &CancelMsg{
		Seller:        seller,
		Escrow:        authority,
		Vault:         vault,
		SellerReceive: f.sellerA,
	}
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	supply, err := f.tokens.GetMint(f.db, mintA)
	assert.Nil(t, err)

	authority, vault := f.initialize(t, 400, 500)

	wantAuthority, bump, err := Authority(seller)
	assert.Nil(t, err)
	assert.Equal(t, wantAuthority, authority)

	// the offered amount moved from the seller to the vault
	assert.Equal(t, uint64(600), f.balance(t, f.sellerA))
	assert.Equal(t, uint64(400), f.balance(t, vault))
	after, err := f.tokens.GetMint(f.db, mintA)
	assert.Nil(t, err)
	assert.Equal(t, supply.Supply, after.Supply)

	// the vault is owned by the authority and paid by the seller
	h, err := f.tokens.Get(f.db, vault)
	assert.Nil(t, err)
	assert.Equal(t, authority, h.Owner)
	assert.Equal(t, uint64(deposit), h.Deposit)
	assert.Equal(t, uint64(100-deposit), f.cashBalance(t, seller))

	e, err := NewBucket().GetEscrow(f.db, authority)
	assert.Nil(t, err)
	assert.Equal(t, &Escrow{
		Seller:        seller,
		Bump:          bump,
		Vault:         vault,
		DesiredMint:   mintB,
		DesiredAmount: 500,
	}, e)

	bySeller, err := NewBucket().GetIndexed(f.db, "seller", seller)
	assert.Nil(t, err)
	if len(bySeller) != 1 {
		t.Fatalf("want one escrow of the seller, got %d", len(bySeller))
	}
}

func TestInitializeErrors(t *testing.T) {
	cases := map[string]struct {
		signer  loom.Address
		mutate  func(f *fixture, msg *InitializeMsg)
		wantErr *errors.Error
	}{
		"seller did not sign": {
			signer:  buyer,
			wantErr: errors.ErrUnauthorized,
		},
		"nothing offered": {
			mutate:  func(_ *fixture, msg *InitializeMsg) { msg.XAmount = 0 },
			wantErr: errors.ErrInput,
		},
		"nothing desired": {
			mutate:  func(_ *fixture, msg *InitializeMsg) { msg.DesiredAmount = 0 },
			wantErr: errors.ErrInput,
		},
		"unknown desired mint": {
			mutate:  func(_ *fixture, msg *InitializeMsg) { msg.DesiredMint = loomtest.NewAddress("nope") },
			wantErr: errors.ErrNotFound,
		},
		"source holding of another mint": {
			mutate:  func(f *fixture, msg *InitializeMsg) { msg.SellerXHolding = f.sellerB },
			wantErr: errors.ErrMismatch,
		},
		"source holding of another owner": {
			mutate:  func(f *fixture, msg *InitializeMsg) { msg.SellerXHolding = f.buyerA },
			wantErr: errors.ErrMismatch,
		},
		"insufficient balance": {
			mutate:  func(_ *fixture, msg *InitializeMsg) { msg.XAmount = 1001 },
			wantErr: errors.ErrInsufficientAmount,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			msg := &InitializeMsg{
				Seller:         seller,
				XMint:          mintA,
				DesiredMint:    mintB,
				SellerXHolding: f.sellerA,
				XAmount:        10,
				DesiredAmount:  20,
			}
			if tc.mutate != nil {
				tc.mutate(f, msg)
			}
			signer := tc.signer
			if signer == nil {
				signer = seller
			}
			before := f.balances(t)

			assert.IsErr(t, tc.wantErr, f.check(signer, msg))
			_, err := f.deliver(signer, msg)
			assert.IsErr(t, tc.wantErr, err)
			assert.Equal(t, before, f.balances(t))

			authority, _, err := Authority(seller)
			assert.Nil(t, err)
			_, err = NewBucket().GetEscrow(f.db, authority)
			assert.IsErr(t, errors.ErrNotFound, err)
		})
	}
}

func TestOneOfferPerSeller(t *testing.T) {
	f := newFixture(t)
	f.initialize(t, 100, 1)

	_, err := f.deliver(seller, &InitializeMsg{
		Seller:         seller,
		XMint:          mintA,
		DesiredMint:    mintB,
		SellerXHolding: f.sellerA,
		XAmount:        100,
		DesiredAmount:  1,
	})
	assert.IsErr(t, errors.ErrDuplicate, err)
	assert.Equal(t, uint64(900), f.balance(t, f.sellerA))
}

func TestAcceptScenario(t *testing.T) {
	f := newFixture(t)
	authority, vault := f.initialize(t, 1000, 500)
	assert.Equal(t, [4]uint64{0, 0, 0, 700}, f.balances(t))

	accept := f.acceptMsg(authority, vault)
	assert.Nil(t, f.check(buyer, accept))
	res, err := f.deliver(buyer, accept)
	assert.Nil(t, err)
	if len(res.Tags) != 1 || string(res.Tags[0].Value) != authority.String() {
		t.Fatalf("unexpected tags: %v", res.Tags)
	}

	// seller: -1000 A +500 B, buyer: +1000 A -500 B
	assert.Equal(t, [4]uint64{0, 500, 1000, 200}, f.balances(t))

	// settled offers are gone, together with the vault
	_, err = NewBucket().GetEscrow(f.db, authority)
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = f.tokens.Get(f.db, vault)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, uint64(100), f.cashBalance(t, seller))

	// no replay
	_, err = f.deliver(buyer, accept)
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = f.deliver(seller, f.cancelMsg(authority, vault))
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, [4]uint64{0, 500, 1000, 200}, f.balances(t))

	// the seller may open a new offer, reusing the vault address
	_, err = f.deliver(seller, &InitializeMsg{
		Seller:         seller,
		XMint:          mintB,
		DesiredMint:    mintA,
		SellerXHolding: f.sellerB,
		XAmount:        500,
		DesiredAmount:  1,
	})
	assert.Nil(t, err)
	assert.Equal(t, uint64(500), f.balance(t, vault))
}

func TestCancelScenario(t *testing.T) {
	f := newFixture(t)
	before := f.balances(t)
	authority, vault := f.initialize(t, 1000, 500)

	cancel := f.cancelMsg(authority, vault)
	assert.Nil(t, f.check(seller, cancel))
	_, err := f.deliver(seller, cancel)
	assert.Nil(t, err)

	assert.Equal(t, before, f.balances(t))
	assert.Equal(t, uint64(100), f.cashBalance(t, seller))
	_, err = NewBucket().GetEscrow(f.db, authority)
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = f.tokens.Get(f.db, vault)
	assert.IsErr(t, errors.ErrNotFound, err)

	_, err = f.deliver(seller, cancel)
	assert.IsErr(t, errors.ErrNotFound, err)
	_, err = f.deliver(buyer, f.acceptMsg(authority, vault))
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestAcceptErrors(t *testing.T) {
	cases := map[string]struct {
		signer  loom.Address
		desired uint64
		mutate  func(f *fixture, msg *AcceptMsg)
		wantErr *errors.Error
	}{
		"buyer did not sign": {
			signer:  seller,
			wantErr: errors.ErrUnauthorized,
		},
		"not an escrow": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.Escrow = loomtest.NewAddress("nothing") },
			wantErr: errors.ErrNotFound,
		},
		"wrong vault": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.Vault = f.sellerA },
			wantErr: errors.ErrMismatch,
		},
		"seller payout of another mint": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.SellerPayout = f.sellerA },
			wantErr: errors.ErrMismatch,
		},
		"seller payout not owned by the seller": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.SellerPayout = f.buyerB },
			wantErr: errors.ErrMismatch,
		},
		"buyer receive of another mint": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.BuyerReceive = f.buyerB },
			wantErr: errors.ErrMismatch,
		},
		"buyer payment not owned by the buyer": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.BuyerPayment = f.sellerB },
			wantErr: errors.ErrMismatch,
		},
		"buyer payment of another mint": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.BuyerPayment = f.buyerA },
			wantErr: errors.ErrMismatch,
		},
		"buyer cannot pay": {
			desired: 701,
			wantErr: errors.ErrInsufficientAmount,
		},
		"receive into the vault": {
			mutate:  func(f *fixture, msg *AcceptMsg) { msg.BuyerReceive = msg.Vault },
			wantErr: errors.ErrInput,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			desired := tc.desired
			if desired == 0 {
				desired = 500
			}
			authority, vault := f.initialize(t, 1000, desired)
			msg := f.acceptMsg(authority, vault)
			if tc.mutate != nil {
				tc.mutate(f, msg)
			}
			signer := tc.signer
			if signer == nil {
				signer = buyer
			}
			before := f.balances(t)

			// check and deliver agree
			assert.IsErr(t, tc.wantErr, f.check(signer, msg))
			_, err := f.deliver(signer, msg)
			assert.IsErr(t, tc.wantErr, err)

			// nothing moved, the offer is still open
			assert.Equal(t, before, f.balances(t))
			assert.Equal(t, uint64(1000), f.balance(t, vault))
			_, err = NewBucket().GetEscrow(f.db, authority)
			assert.Nil(t, err)
		})
	}
}

func TestCancelErrors(t *testing.T) {
	cases := map[string]struct {
		signer  loom.Address
		mutate  func(f *fixture, msg *CancelMsg)
		wantErr *errors.Error
	}{
		"seller did not sign": {
			signer:  buyer,
			wantErr: errors.ErrUnauthorized,
		},
		"not the seller of the escrow": {
			signer:  buyer,
			mutate:  func(f *fixture, msg *CancelMsg) { msg.Seller = buyer },
			wantErr: errors.ErrUnauthorized,
		},
		"wrong vault": {
			mutate:  func(f *fixture, msg *CancelMsg) { msg.Vault = f.sellerB },
			wantErr: errors.ErrMismatch,
		},
		"receive not owned by the seller": {
			mutate:  func(f *fixture, msg *CancelMsg) { msg.SellerReceive = f.buyerA },
			wantErr: errors.ErrMismatch,
		},
		"receive of another mint": {
			mutate:  func(f *fixture, msg *CancelMsg) { msg.SellerReceive = f.sellerB },
			wantErr: errors.ErrMismatch,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t)
			authority, vault := f.initialize(t, 1000, 1)
			msg := f.cancelMsg(authority, vault)
			if tc.mutate != nil {
				tc.mutate(f, msg)
			}
			signer := tc.signer
			if signer == nil {
				signer = seller
			}

			_, err := f.deliver(signer, msg)
			assert.IsErr(t, tc.wantErr, err)
			assert.Equal(t, uint64(1000), f.balance(t, vault))
			_, err = NewBucket().GetEscrow(f.db, authority)
			assert.Nil(t, err)
		})
	}
}

func TestVaultContainment(t *testing.T) {
	f := newFixture(t)
	_, vault := f.initialize(t, 1000, 500)
	_, bump, err := Authority(seller)
	assert.Nil(t, err)
	ctx := f.auth.SetSigners(context.Background(), seller, buyer)

	// no user signature covers the vault
	err = f.tokens.Transfer(ctx, f.db, vault, f.sellerA, 1, token.Authenticated(f.auth))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.tokens.Transfer(ctx, f.db, vault, f.sellerA, 1, token.SignedBy(f.auth, seller))
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// another program reproducing the seeds cannot sign either
	thief := f.tokens.Program("thief")
	err = f.tokens.Transfer(ctx, f.db, vault, f.sellerA, 1, thief.Sign(bump, authoritySeed, seller))
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// the escrow capability exists only once
	assert.Panics(t, func() { RegisterRoutes(app.NewRouter(), f.auth, f.tokens) })

	// the token transfer message cannot drain the vault
	_, err = f.deliver(seller, &token.TransferMsg{Src: vault, Dest: f.sellerA, Amount: 1})
	assert.IsErr(t, errors.ErrUnauthorized, err)
	_, err = f.deliver(seller, &token.CloseHoldingMsg{Holding: vault, Recipient: seller})
	assert.IsErr(t, errors.ErrUnauthorized, err)
	assert.Equal(t, uint64(1000), f.balance(t, vault))
}

func TestVaultCannotBeCredited(t *testing.T) {
	f := newFixture(t)
	authority, vault := f.initialize(t, 400, 500)
	ctx := f.auth.SetSigners(context.Background(), seller, buyer)

	// the owner of the source signs, still the vault refuses the tokens
	_, err := f.deliver(seller, &token.TransferMsg{Src: f.sellerA, Dest: vault, Amount: 50})
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.tokens.Transfer(ctx, f.db, f.sellerA, vault, 50, token.SignedBy(f.auth, seller))
	assert.IsErr(t, errors.ErrUnauthorized, err)

	// a capability of another program cannot deposit
	thief := f.tokens.Program("thief")
	err = f.tokens.Deposit(ctx, f.db, thief, f.sellerA, vault, 50, token.SignedBy(f.auth, seller))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	assert.Equal(t, uint64(400), f.balance(t, vault))
	assert.Equal(t, uint64(600), f.balance(t, f.sellerA))

	// the buyer gets exactly what was offered
	_, err = f.deliver(buyer, f.acceptMsg(authority, vault))
	assert.Nil(t, err)
	assert.Equal(t, uint64(400), f.balance(t, f.buyerA))
}

func TestTamperedRecord(t *testing.T) {
	f := newFixture(t)
	authority, vault := f.initialize(t, 1000, 500)

	bucket := NewBucket()
	e, err := bucket.GetEscrow(f.db, authority)
	assert.Nil(t, err)
	e.Bump--
	assert.Nil(t, bucket.Save(f.db, orm.NewSimpleObj(authority, e)))

	_, err = f.deliver(buyer, f.acceptMsg(authority, vault))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	_, err = f.deliver(seller, f.cancelMsg(authority, vault))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	assert.Equal(t, uint64(1000), f.balance(t, vault))
}
