package token

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/gconf"
	"github.com/iov-one/loom/orm"
	"github.com/iov-one/loom/x/cash"
)

const (
	optKey = "token"
	// configPkg names the token configuration in the "conf" genesis
	// section and in the database
	configPkg = "token"
)

// GenesisMint declares a mint in the genesis file
type GenesisMint struct {
	Address  loom.Address `json:"address"`
	Decimals uint32       `json:"decimals"`
}

// GenesisHolding declares the initial balance of an owner. It is stored
// at the associated address of the owner and mint.
type GenesisHolding struct {
	Owner  loom.Address `json:"owner"`
	Mint   loom.Address `json:"mint"`
	Amount uint64       `json:"amount"`
}

// Genesis is the "token" section of the genesis app_state
type Genesis struct {
	Mints    []GenesisMint    `json:"mints"`
	Holdings []GenesisHolding `json:"holdings"`
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ loom.Initializer = Initializer{}

// FromGenesis stores the configuration, all mints and the initial
// holdings. Mint supplies are the sum of their genesis holdings.
func (Initializer) FromGenesis(opts loom.Options, kv loom.KVStore) error {
	// the configuration is optional, holdings are free without one
	var conf Config
	if err := gconf.InitConfig(kv, opts, configPkg, &conf); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}

	var gen Genesis
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	ctrl := NewController(cash.NewController(cash.NewBucket()))
	for _, m := range gen.Mints {
		if err := ctrl.createMint(kv, m.Address, &Mint{Decimals: m.Decimals}); err != nil {
			return errors.Wrapf(err, "mint %s", m.Address)
		}
	}
	for _, h := range gen.Holdings {
		if err := h.Owner.Validate(); err != nil {
			return errors.Wrap(err, "holding owner")
		}
		addr, err := AssociatedAddress(h.Owner, h.Mint)
		if err != nil {
			return err
		}
		exists, err := ctrl.holdings.Has(kv, addr)
		if err != nil {
			return err
		}
		// genesis holdings are free of deposit
		if !exists {
			if _, err := ctrl.GetMint(kv, h.Mint); err != nil {
				return err
			}
			obj := orm.NewSimpleObj(addr, &Holding{Owner: h.Owner, Mint: h.Mint})
			if err := ctrl.holdings.Create(kv, obj); err != nil {
				return err
			}
		}
		if err := ctrl.mintTo(kv, addr, h.Amount); err != nil {
			return err
		}
	}
	return nil
}
