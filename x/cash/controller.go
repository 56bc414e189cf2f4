package cash

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
)

// Controller is the functionality needed by other extensions
// to move native balances
type Controller interface {
	MoveCoins(db loom.KVStore, src, dest loom.Address, amount uint64) error
	IssueCoins(db loom.KVStore, dest loom.Address, amount uint64) error
	Balance(db loom.ReadOnlyKVStore, addr loom.Address) (uint64, error)
}

// BaseController is a simple implementation of Controller
type BaseController struct {
	bucket Bucket
}

var _ Controller = BaseController{}

// NewController returns a basic controller implementation
func NewController(bucket Bucket) BaseController {
	return BaseController{bucket: bucket}
}

// Balance returns the native balance of the address, zero if unknown
func (c BaseController) Balance(db loom.ReadOnlyKVStore, addr loom.Address) (uint64, error) {
	obj, err := c.bucket.Get(db, addr)
	if err != nil {
		return 0, err
	}
	if w := AsWallet(obj); w != nil {
		return w.Balance, nil
	}
	return 0, nil
}

// MoveCoins moves the given amount from src to dest.
// If src doesn't exist, or doesn't have sufficient
// coins, it fails.
func (c BaseController) MoveCoins(db loom.KVStore, src, dest loom.Address, amount uint64) error {
	if amount == 0 {
		return errors.Wrap(errors.ErrAmount, "non-positive send")
	}
	if src.Equals(dest) {
		return errors.Wrap(errors.ErrInput, "source and destination are the same")
	}

	sender, err := c.bucket.Get(db, src)
	if err != nil {
		return err
	}
	if sender == nil {
		return errors.Wrapf(errors.ErrEmpty, "wallet %s", src)
	}
	if err := AsWallet(sender).Subtract(amount); err != nil {
		return err
	}

	recipient, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return err
	}
	if err := AsWallet(recipient).Add(amount); err != nil {
		return err
	}

	if err := c.bucket.Save(db, sender); err != nil {
		return err
	}
	return c.bucket.Save(db, recipient)
}

// IssueCoins attempts to add the given amount of coins to
// the destination address. Fails if it overflows the wallet.
func (c BaseController) IssueCoins(db loom.KVStore, dest loom.Address, amount uint64) error {
	recipient, err := c.bucket.GetOrCreate(db, dest)
	if err != nil {
		return err
	}
	if err := AsWallet(recipient).Add(amount); err != nil {
		return err
	}
	return c.bucket.Save(db, recipient)
}
