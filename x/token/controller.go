package token

import (
	"context"
	"fmt"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/gconf"
	"github.com/iov-one/loom/orm"
	"github.com/iov-one/loom/x/cash"
)

// ProgramName is the derivation domain of associated holding addresses
const ProgramName = "token"

// Controller is the token ledger. All balance changes go through it.
type Controller struct {
	mints    orm.Bucket
	holdings orm.Bucket
	cash     cash.Controller
	programs map[string]struct{}
}

// NewController returns a ledger paying storage deposits with cash
func NewController(cashCtrl cash.Controller) *Controller {
	return &Controller{
		mints:    NewMintBucket(),
		holdings: NewHoldingBucket(),
		cash:     cashCtrl,
		programs: map[string]struct{}{ProgramName: {}},
	}
}

// Program hands out the signing capability for the named program.
// It panics if the name was already handed out, so each program
// receives its capability exactly once while wiring the application.
func (c *Controller) Program(name string) Program {
	if name == "" {
		panic("program name required")
	}
	if _, ok := c.programs[name]; ok {
		panic(fmt.Sprintf("program %q already registered", name))
	}
	c.programs[name] = struct{}{}
	return Program{name: name}
}

// Get returns the holding stored at addr
func (c *Controller) Get(db loom.ReadOnlyKVStore, addr loom.Address) (*Holding, error) {
	obj, err := c.holdings.Get(db, addr)
	if err != nil {
		return nil, err
	}
	h := AsHolding(obj)
	if h == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "holding %s", addr)
	}
	return h, nil
}

// Balance returns the amount stored in the holding at addr
func (c *Controller) Balance(db loom.ReadOnlyKVStore, addr loom.Address) (uint64, error) {
	h, err := c.Get(db, addr)
	if err != nil {
		return 0, err
	}
	return h.Amount, nil
}

// GetMint returns the mint stored at addr
func (c *Controller) GetMint(db loom.ReadOnlyKVStore, addr loom.Address) (*Mint, error) {
	obj, err := c.mints.Get(db, addr)
	if err != nil {
		return nil, err
	}
	m := AsMint(obj)
	if m == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "mint %s", addr)
	}
	return m, nil
}

// HoldingDeposit returns the native balance required to open a holding.
// Without a configuration holdings are free.
func (c *Controller) HoldingDeposit(db loom.ReadOnlyKVStore) (uint64, error) {
	var conf Config
	switch err := gconf.Load(db, configPkg, &conf); {
	case errors.ErrNotFound.Is(err):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return conf.HoldingDeposit, nil
}

// Open creates an empty holding of mint at addr owned by owner.
// The payer's native balance pays the storage deposit, the caller
// is responsible for authorizing the payer.
func (c *Controller) Open(ctx context.Context, db loom.KVStore, payer, addr, mint, owner loom.Address) (*Holding, error) {
	return c.open(ctx, db, payer, addr, mint, owner, "")
}

// OpenFor creates an empty holding that only program p can credit,
// through Deposit or with its own signature.
func (c *Controller) OpenFor(ctx context.Context, db loom.KVStore, p Program, payer, addr, mint, owner loom.Address) (*Holding, error) {
	if p.name == "" {
		return nil, errors.Wrap(errors.ErrUnauthorized, "unregistered program")
	}
	return c.open(ctx, db, payer, addr, mint, owner, p.name)
}

func (c *Controller) open(ctx context.Context, db loom.KVStore, payer, addr, mint, owner loom.Address, program string) (*Holding, error) {
	if err := addr.Validate(); err != nil {
		return nil, errors.Wrap(err, "holding address")
	}
	if _, err := c.GetMint(db, mint); err != nil {
		return nil, err
	}
	exists, err := c.holdings.Has(db, addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(errors.ErrDuplicate, "holding %s", addr)
	}

	deposit, err := c.HoldingDeposit(db)
	if err != nil {
		return nil, err
	}
	if deposit > 0 {
		if err := c.cash.MoveCoins(db, payer, addr, deposit); err != nil {
			return nil, errors.Wrap(err, "holding deposit")
		}
	}

	h := &Holding{Owner: owner, Mint: mint, Deposit: deposit, Program: program}
	if err := c.holdings.Create(db, orm.NewSimpleObj(addr, h)); err != nil {
		return nil, err
	}
	loom.GetLogger(ctx).Debug("holding opened", "holding", addr, "owner", owner, "mint", mint, "program", program)
	return h, nil
}

// Transfer moves amount of tokens between two holdings of the same mint.
// The authorizer must cover the owner of the source holding. A holding
// opened by a program is only credited when the authorizer is a
// signature of that program.
func (c *Controller) Transfer(ctx context.Context, db loom.KVStore, from, to loom.Address, amount uint64, a Authorizer) error {
	var program string
	if ps, ok := a.(programSignature); ok {
		program = ps.program
	}
	return c.transfer(ctx, db, from, to, amount, a, program)
}

// Deposit moves tokens into a holding opened by program p. The
// authorizer must cover the owner of the source holding.
func (c *Controller) Deposit(ctx context.Context, db loom.KVStore, p Program, from, to loom.Address, amount uint64, a Authorizer) error {
	if p.name == "" {
		return errors.Wrap(errors.ErrUnauthorized, "unregistered program")
	}
	return c.transfer(ctx, db, from, to, amount, a, p.name)
}

// transfer credits a program holding only for the given program
func (c *Controller) transfer(ctx context.Context, db loom.KVStore, from, to loom.Address, amount uint64, a Authorizer, program string) error {
	if from.Equals(to) {
		return errors.Wrap(errors.ErrInput, "source and destination holding are the same")
	}
	src, err := c.Get(db, from)
	if err != nil {
		return errors.Wrap(err, "source")
	}
	dest, err := c.Get(db, to)
	if err != nil {
		return errors.Wrap(err, "destination")
	}
	if !src.Mint.Equals(dest.Mint) {
		return errors.Wrapf(errors.ErrMismatch, "mint %s cannot be sent to mint %s", src.Mint, dest.Mint)
	}
	if dest.Program != "" && dest.Program != program {
		return errors.Wrapf(errors.ErrUnauthorized, "holding %s is credited only by program %s", to, dest.Program)
	}
	if err := a.Authorize(ctx, src.Owner); err != nil {
		return err
	}
	if src.Amount < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "holding %d, need %d", src.Amount, amount)
	}
	if dest.Amount+amount < dest.Amount {
		return errors.Wrap(errors.ErrOverflow, "destination amount")
	}

	src.Amount -= amount
	dest.Amount += amount
	if err := c.holdings.Save(db, orm.NewSimpleObj(from, src)); err != nil {
		return err
	}
	return c.holdings.Save(db, orm.NewSimpleObj(to, dest))
}

// Close removes an empty holding and returns its deposit to the
// rent recipient. The authorizer must cover the holding owner.
func (c *Controller) Close(ctx context.Context, db loom.KVStore, addr, rentRecipient loom.Address, a Authorizer) error {
	h, err := c.Get(db, addr)
	if err != nil {
		return err
	}
	if err := a.Authorize(ctx, h.Owner); err != nil {
		return err
	}
	if h.Amount != 0 {
		return errors.Wrapf(errors.ErrState, "holding still has %d tokens", h.Amount)
	}
	if err := c.holdings.Delete(db, addr); err != nil {
		return err
	}
	if h.Deposit > 0 {
		if err := c.cash.MoveCoins(db, addr, rentRecipient, h.Deposit); err != nil {
			return errors.Wrap(err, "return deposit")
		}
	}
	loom.GetLogger(ctx).Debug("holding closed", "holding", addr, "recipient", rentRecipient)
	return nil
}

// createMint stores a new mint, used at genesis
func (c *Controller) createMint(db loom.KVStore, addr loom.Address, m *Mint) error {
	if err := addr.Validate(); err != nil {
		return errors.Wrap(err, "mint address")
	}
	return c.mints.Create(db, orm.NewSimpleObj(addr, m))
}

// mintTo increases a holding and the mint supply, used at genesis
func (c *Controller) mintTo(db loom.KVStore, addr loom.Address, amount uint64) error {
	h, err := c.Get(db, addr)
	if err != nil {
		return err
	}
	obj, err := c.mints.Get(db, h.Mint)
	if err != nil {
		return err
	}
	m := AsMint(obj)
	if m == nil {
		return errors.Wrapf(errors.ErrNotFound, "mint %s", h.Mint)
	}
	if m.Supply+amount < m.Supply || h.Amount+amount < h.Amount {
		return errors.Wrap(errors.ErrOverflow, "supply")
	}
	m.Supply += amount
	h.Amount += amount
	if err := c.mints.Save(db, obj); err != nil {
		return err
	}
	return c.holdings.Save(db, orm.NewSimpleObj(addr, h))
}
