package cash

import (
	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/orm"
)

// BucketName is where we store the balances
const BucketName = "cash"

// Wallet is the native balance of one address
type Wallet struct {
	Balance uint64
}

var _ orm.Model = (*Wallet)(nil)

// Marshal encodes the wallet in protobuf wire format
func (w *Wallet) Marshal() ([]byte, error) {
	var pw orm.ProtoWriter
	pw.Uint(1, w.Balance)
	return pw.Result(), nil
}

// Unmarshal decodes the protobuf wire format
func (w *Wallet) Unmarshal(bz []byte) error {
	*w = Wallet{}
	return orm.ReadProtoFields(bz, func(field int, v uint64, b []byte) error {
		if field == 1 {
			w.Balance = v
		}
		return nil
	})
}

// Validate always passes, any balance is valid
func (w *Wallet) Validate() error {
	return nil
}

// Add increases the balance, failing on overflow
func (w *Wallet) Add(amount uint64) error {
	sum := w.Balance + amount
	if sum < w.Balance {
		return errors.Wrap(errors.ErrOverflow, "wallet balance")
	}
	w.Balance = sum
	return nil
}

// Subtract decreases the balance, failing if it is not enough
func (w *Wallet) Subtract(amount uint64) error {
	if w.Balance < amount {
		return errors.Wrapf(errors.ErrInsufficientAmount, "balance %d, need %d", w.Balance, amount)
	}
	w.Balance -= amount
	return nil
}

// AsWallet will safely type-cast any value from Bucket to a Wallet
func AsWallet(obj orm.Object) *Wallet {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Wallet)
}

// NewWallet creates an empty wallet object for the address
func NewWallet(addr loom.Address) orm.Object {
	return orm.NewSimpleObj(addr, new(Wallet))
}

// Bucket is a type-safe wrapper around orm.Bucket
type Bucket struct {
	orm.Bucket
}

// NewBucket initializes a cash bucket
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, NewWallet(nil)),
	}
}

// GetOrCreate will return the wallet if found, or create one
// if not.
func (b Bucket) GetOrCreate(db loom.ReadOnlyKVStore, addr loom.Address) (orm.Object, error) {
	obj, err := b.Get(db, addr)
	if err == nil && obj == nil {
		obj = NewWallet(addr)
	}
	return obj, err
}
