package token

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/gconf"
	"github.com/iov-one/loom/loomtest"
	"github.com/iov-one/loom/loomtest/assert"
	"github.com/iov-one/loom/orm"
	"github.com/iov-one/loom/store"
	"github.com/iov-one/loom/x/cash"
)

var (
	mintA = loomtest.NewAddress("mint-a")
	mintB = loomtest.NewAddress("mint-b")
)

type fixture struct {
	db   loom.CacheableKVStore
	ctrl *Controller
	cash cash.BaseController
	auth *loomtest.CtxAuth
}

func newFixture(t testing.TB, deposit uint64) fixture {
	t.Helper()
	db := store.MemStore()
	cashCtrl := cash.NewController(cash.NewBucket())
	ctrl := NewController(cashCtrl)
	assert.Nil(t, ctrl.createMint(db, mintA, &Mint{Decimals: 6}))
	assert.Nil(t, ctrl.createMint(db, mintB, &Mint{Decimals: 2}))
	assert.Nil(t, gconf.Save(db, configPkg, &Config{HoldingDeposit: deposit}))
	return fixture{db: db, ctrl: ctrl, cash: cashCtrl, auth: &loomtest.CtxAuth{Key: "auth"}}
}

// holding opens the associated holding of owner and mints amount into it
func (f fixture) holding(t testing.TB, owner, mint loom.Address, amount uint64) loom.Address {
	t.Helper()
	addr, err := AssociatedAddress(owner, mint)
	assert.Nil(t, err)
	_, err = f.ctrl.Open(context.Background(), f.db, owner, addr, mint, owner)
	assert.Nil(t, err)
	if amount > 0 {
		assert.Nil(t, f.ctrl.mintTo(f.db, addr, amount))
	}
	return addr
}

func TestTransfer(t *testing.T) {
	alice, bob := loomtest.NewAddress("alice"), loomtest.NewAddress("bob")

	cases := map[string]struct {
		amount    uint64
		signer    loom.Address
		wrongMint bool
		missing   bool
		wantErr   *errors.Error
		wantAlice uint64
		wantBob   uint64
	}{
		"part of balance": {
			amount: 30, signer: alice,
			wantAlice: 70, wantBob: 30,
		},
		"whole balance": {
			amount: 100, signer: alice,
			wantAlice: 0, wantBob: 100,
		},
		"zero is a no-op": {
			amount: 0, signer: alice,
			wantAlice: 100, wantBob: 0,
		},
		"too much": {
			amount: 101, signer: alice,
			wantErr: errors.ErrInsufficientAmount, wantAlice: 100,
		},
		"not the owner": {
			amount: 1, signer: bob,
			wantErr: errors.ErrUnauthorized, wantAlice: 100,
		},
		"different mint": {
			amount: 1, signer: alice, wrongMint: true,
			wantErr: errors.ErrMismatch, wantAlice: 100,
		},
		"missing destination": {
			amount: 1, signer: alice, missing: true,
			wantErr: errors.ErrNotFound, wantAlice: 100,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newFixture(t, 0)
			src := f.holding(t, alice, mintA, 100)
			var dest loom.Address
			switch {
			case tc.missing:
				dest = loomtest.NewAddress("nowhere")
			case tc.wrongMint:
				dest = f.holding(t, bob, mintB, 0)
			default:
				dest = f.holding(t, bob, mintA, 0)
			}

			ctx := f.auth.SetSigners(context.Background(), tc.signer)
			err := f.ctrl.Transfer(ctx, f.db, src, dest, tc.amount, SignedBy(f.auth, tc.signer))
			assert.IsErr(t, tc.wantErr, err)

			got, err := f.ctrl.Balance(f.db, src)
			assert.Nil(t, err)
			assert.Equal(t, tc.wantAlice, got)
			if !tc.missing {
				got, err = f.ctrl.Balance(f.db, dest)
				assert.Nil(t, err)
				assert.Equal(t, tc.wantBob, got)
			}
		})
	}
}

func TestTransferOverflow(t *testing.T) {
	alice, bob := loomtest.NewAddress("alice"), loomtest.NewAddress("bob")
	f := newFixture(t, 0)
	src := f.holding(t, alice, mintA, 10)
	dest := f.holding(t, bob, mintA, 0)
	// force a full destination without touching the supply
	h, err := f.ctrl.Get(f.db, dest)
	assert.Nil(t, err)
	h.Amount = ^uint64(0)
	assert.Nil(t, f.ctrl.holdings.Save(f.db, orm.NewSimpleObj(dest, h)))

	ctx := f.auth.SetSigners(context.Background(), alice)
	err = f.ctrl.Transfer(ctx, f.db, src, dest, 1, Authenticated(f.auth))
	assert.IsErr(t, errors.ErrOverflow, err)
}

func TestTransferConservesSupply(t *testing.T) {
	alice, bob, carol := loomtest.NewAddress("alice"), loomtest.NewAddress("bob"), loomtest.NewAddress("carol")
	f := newFixture(t, 0)
	a := f.holding(t, alice, mintA, 500)
	b := f.holding(t, bob, mintA, 250)
	c := f.holding(t, carol, mintA, 0)

	ctx := f.auth.SetSigners(context.Background(), alice, bob)
	auth := Authenticated(f.auth)
	assert.Nil(t, f.ctrl.Transfer(ctx, f.db, a, c, 123, auth))
	assert.Nil(t, f.ctrl.Transfer(ctx, f.db, b, a, 250, auth))
	assert.Nil(t, f.ctrl.Transfer(ctx, f.db, a, b, 1, auth))

	var sum uint64
	for _, addr := range []loom.Address{a, b, c} {
		bal, err := f.ctrl.Balance(f.db, addr)
		assert.Nil(t, err)
		sum += bal
	}
	m, err := f.ctrl.GetMint(f.db, mintA)
	assert.Nil(t, err)
	assert.Equal(t, m.Supply, sum)
	assert.Equal(t, uint64(750), sum)
}

func TestProgramAuthority(t *testing.T) {
	f := newFixture(t, 0)
	prog := f.ctrl.Program("vaults")
	assert.Panics(t, func() { f.ctrl.Program("vaults") })
	assert.Panics(t, func() { f.ctrl.Program(ProgramName) })

	seed := []byte("shared")
	owner, bump, err := loom.FindDerivedAddress("vaults", seed)
	assert.Nil(t, err)
	bob := loomtest.NewAddress("bob")

	vault := loomtest.NewAddress("vault-holding")
	_, err = f.ctrl.Open(context.Background(), f.db, bob, vault, mintA, owner)
	assert.Nil(t, err)
	assert.Nil(t, f.ctrl.mintTo(f.db, vault, 40))
	dest := f.holding(t, bob, mintA, 0)

	ctx := context.Background()
	// signatures of other programs, bumps or seeds are refused
	err = f.ctrl.Transfer(ctx, f.db, vault, dest, 1, prog.Sign(bump, []byte("other")))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.ctrl.Transfer(ctx, f.db, vault, dest, 1, Program{name: "intruder"}.Sign(bump, seed))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	err = f.ctrl.Transfer(ctx, f.db, vault, dest, 1, Program{}.Sign(bump, seed))
	assert.IsErr(t, errors.ErrUnauthorized, err)
	// a user signature never covers a derived owner
	err = f.ctrl.Transfer(f.auth.SetSigners(ctx, owner), f.db, vault, dest, 1, SignedBy(f.auth, bob))
	assert.IsErr(t, errors.ErrUnauthorized, err)

	assert.Nil(t, f.ctrl.Transfer(ctx, f.db, vault, dest, 40, prog.Sign(bump, seed)))
	got, err := f.ctrl.Balance(f.db, dest)
	assert.Nil(t, err)
	assert.Equal(t, uint64(40), got)
}

func TestOpenAndClose(t *testing.T) {
	alice, bob := loomtest.NewAddress("alice"), loomtest.NewAddress("bob")
	f := newFixture(t, 10)
	assert.Nil(t, f.cash.IssueCoins(f.db, alice, 25))

	addr, err := AssociatedAddress(alice, mintA)
	assert.Nil(t, err)
	ctx := f.auth.SetSigners(context.Background(), alice)

	_, err = f.ctrl.Open(ctx, f.db, alice, addr, loomtest.NewAddress("unknown"), alice)
	assert.IsErr(t, errors.ErrNotFound, err)

	h, err := f.ctrl.Open(ctx, f.db, alice, addr, mintA, alice)
	assert.Nil(t, err)
	assert.Equal(t, uint64(10), h.Deposit)
	bal, err := f.cash.Balance(f.db, alice)
	assert.Nil(t, err)
	assert.Equal(t, uint64(15), bal)

	_, err = f.ctrl.Open(ctx, f.db, alice, addr, mintA, alice)
	assert.IsErr(t, errors.ErrDuplicate, err)

	// bob cannot pay a deposit
	bobAddr, err := AssociatedAddress(bob, mintA)
	assert.Nil(t, err)
	_, err = f.ctrl.Open(ctx, f.db, bob, bobAddr, mintA, bob)
	assert.IsErr(t, errors.ErrEmpty, err)

	assert.Nil(t, f.ctrl.mintTo(f.db, addr, 5))
	err = f.ctrl.Close(ctx, f.db, addr, alice, Authenticated(f.auth))
	assert.IsErr(t, errors.ErrState, err)
	err = f.ctrl.Close(ctx, f.db, addr, alice, SignedBy(f.auth, bob))
	assert.IsErr(t, errors.ErrUnauthorized, err)

	h, err = f.ctrl.Get(f.db, addr)
	assert.Nil(t, err)
	h.Amount = 0
	assert.Nil(t, f.ctrl.holdings.Save(f.db, orm.NewSimpleObj(addr, h)))

	assert.Nil(t, f.ctrl.Close(ctx, f.db, addr, bob, Authenticated(f.auth)))
	_, err = f.ctrl.Get(f.db, addr)
	assert.IsErr(t, errors.ErrNotFound, err)
	bal, err = f.cash.Balance(f.db, bob)
	assert.Nil(t, err)
	assert.Equal(t, uint64(10), bal)
}

func TestGenesis(t *testing.T) {
	alice, bob := loomtest.NewAddress("alice"), loomtest.NewAddress("bob")
	gen := Genesis{
		Mints: []GenesisMint{{Address: mintA, Decimals: 6}},
		Holdings: []GenesisHolding{
			{Owner: alice, Mint: mintA, Amount: 1000},
			{Owner: bob, Mint: mintA, Amount: 5},
			{Owner: alice, Mint: mintA, Amount: 1},
		},
	}
	raw, err := json.Marshal(gen)
	assert.Nil(t, err)
	opts := loom.Options{
		optKey: raw,
		"conf": json.RawMessage(`{"token": {"holding_deposit": 7}}`),
	}

	db := store.MemStore()
	assert.Nil(t, Initializer{}.FromGenesis(opts, db))

	ctrl := NewController(cash.NewController(cash.NewBucket()))
	deposit, err := ctrl.HoldingDeposit(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(7), deposit)

	addr, err := AssociatedAddress(alice, mintA)
	assert.Nil(t, err)
	got, err := ctrl.Balance(db, addr)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1001), got)

	m, err := ctrl.GetMint(db, mintA)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1006), m.Supply)

	owned, err := NewHoldingBucket().GetIndexed(db, "owner", bob)
	assert.Nil(t, err)
	if len(owned) != 1 {
		t.Fatalf("want one holding of bob, got %d", len(owned))
	}
}

func TestModelCodec(t *testing.T) {
	h := &Holding{Owner: loomtest.NewAddress("o"), Mint: mintA, Amount: 12, Deposit: 3, Program: "escrow"}
	bz, err := h.Marshal()
	assert.Nil(t, err)
	var got Holding
	assert.Nil(t, got.Unmarshal(bz))
	assert.Equal(t, *h, got)

	m := &Mint{Decimals: 9, Supply: 1 << 40}
	bz, err = m.Marshal()
	assert.Nil(t, err)
	var gotMint Mint
	assert.Nil(t, gotMint.Unmarshal(bz))
	assert.Equal(t, *m, gotMint)

	assert.IsErr(t, errors.ErrInput, (&Holding{Owner: []byte{1}, Mint: mintA}).Validate())

	// decimals wider than 32 bits are not truncated
	var w orm.ProtoWriter
	w.Uint(1, 1<<32+6)
	assert.IsErr(t, errors.ErrInvalidModel, gotMint.Unmarshal(w.Result()))
}

func TestProgramHoldings(t *testing.T) {
	f := newFixture(t, 0)
	alice := loomtest.NewAddress("alice")
	ctx := f.auth.SetSigners(context.Background(), alice)
	src := f.holding(t, alice, mintA, 100)

	prog := f.ctrl.Program("vaults")
	other := f.ctrl.Program("other")
	vaultOwner, bump, err := loom.FindDerivedAddress("vaults", []byte("v"))
	assert.Nil(t, err)
	vault, _, err := loom.FindDerivedAddress("vaults", []byte("vault"))
	assert.Nil(t, err)

	_, err = f.ctrl.OpenFor(ctx, f.db, Program{}, alice, vault, mintA, vaultOwner)
	assert.IsErr(t, errors.ErrUnauthorized, err)
	h, err := f.ctrl.OpenFor(ctx, f.db, prog, alice, vault, mintA, vaultOwner)
	assert.Nil(t, err)
	assert.Equal(t, "vaults", h.Program)

	alicePays := SignedBy(f.auth, alice)
	cases := map[string]struct {
		move    func() error
		wantErr *errors.Error
	}{
		"plain transfer": {
			move:    func() error { return f.ctrl.Transfer(ctx, f.db, src, vault, 10, alicePays) },
			wantErr: errors.ErrUnauthorized,
		},
		"deposit by another program": {
			move:    func() error { return f.ctrl.Deposit(ctx, f.db, other, src, vault, 10, alicePays) },
			wantErr: errors.ErrUnauthorized,
		},
		"deposit without program": {
			move:    func() error { return f.ctrl.Deposit(ctx, f.db, Program{}, src, vault, 10, alicePays) },
			wantErr: errors.ErrUnauthorized,
		},
		"deposit still needs the source owner": {
			move:    func() error { return f.ctrl.Deposit(ctx, f.db, prog, src, vault, 10, prog.Sign(bump, []byte("v"))) },
			wantErr: errors.ErrUnauthorized,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			assert.IsErr(t, tc.wantErr, tc.move())
			got, err := f.ctrl.Balance(f.db, vault)
			assert.Nil(t, err)
			assert.Equal(t, uint64(0), got)
		})
	}

	assert.Nil(t, f.ctrl.Deposit(ctx, f.db, prog, src, vault, 30, alicePays))
	got, err := f.ctrl.Balance(f.db, vault)
	assert.Nil(t, err)
	assert.Equal(t, uint64(30), got)

	// the program moves the tokens out with its own signature
	assert.Nil(t, f.ctrl.Transfer(ctx, f.db, vault, src, 30, prog.Sign(bump, []byte("v"))))
	got, err = f.ctrl.Balance(f.db, src)
	assert.Nil(t, err)
	assert.Equal(t, uint64(100), got)
}
