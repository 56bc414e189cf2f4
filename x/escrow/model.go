package escrow

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/orm"
)

// BucketName is where we store the escrows
const BucketName = "escrow"

// recordSize is the length of a serialized escrow record
const recordSize = 8 + loom.AddressLength + 1 + loom.AddressLength + loom.AddressLength + 8

// recordPrefix tags the storage format version of a record
var recordPrefix = func() []byte {
	h := sha256.Sum256([]byte("loom:escrow:v1"))
	return h[:8]
}()

// Escrow is an open offer of the seller. It is stored under the escrow
// authority derived from the seller address.
type Escrow struct {
	Seller        loom.Address
	Bump          uint8
	Vault         loom.Address
	DesiredMint   loom.Address
	DesiredAmount uint64
}

var _ orm.Model = (*Escrow)(nil)

// Marshal writes the fixed width record layout
func (e *Escrow) Marshal() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	bz := make([]byte, 0, recordSize)
	bz = append(bz, recordPrefix...)
	bz = append(bz, e.Seller...)
	bz = append(bz, e.Bump)
	bz = append(bz, e.Vault...)
	bz = append(bz, e.DesiredMint...)
	var amount [8]byte
	binary.LittleEndian.PutUint64(amount[:], e.DesiredAmount)
	return append(bz, amount[:]...), nil
}

// Unmarshal reads a record written by Marshal
func (e *Escrow) Unmarshal(bz []byte) error {
	if len(bz) != recordSize {
		return errors.Wrapf(errors.ErrInvalidModel, "escrow record of %d bytes", len(bz))
	}
	if !bytes.Equal(bz[:8], recordPrefix) {
		return errors.Wrap(errors.ErrInvalidModel, "unknown escrow record format")
	}
	bz = bz[8:]
	next := func(n int) []byte {
		chunk := make([]byte, n)
		copy(chunk, bz[:n])
		bz = bz[n:]
		return chunk
	}
	e.Seller = next(loom.AddressLength)
	e.Bump = next(1)[0]
	e.Vault = next(loom.AddressLength)
	e.DesiredMint = next(loom.AddressLength)
	e.DesiredAmount = binary.LittleEndian.Uint64(bz)
	return nil
}

// Validate ensures the record can be stored
func (e *Escrow) Validate() error {
	if err := e.Seller.Validate(); err != nil {
		return errors.Wrap(err, "seller")
	}
	if err := e.Vault.Validate(); err != nil {
		return errors.Wrap(err, "vault")
	}
	if err := e.DesiredMint.Validate(); err != nil {
		return errors.Wrap(err, "desired mint")
	}
	if e.DesiredAmount == 0 {
		return errors.Wrap(errors.ErrInvalidModel, "desired amount must be positive")
	}
	return nil
}

// AsEscrow extracts an *Escrow value or nil from the object
// Must be called on a Bucket result that is an *Escrow,
// will panic on bad type.
func AsEscrow(obj orm.Object) *Escrow {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Escrow)
}

// Bucket stores escrow records by authority, with a unique index
// on the seller
type Bucket struct {
	orm.Bucket
}

// NewBucket creates the escrow bucket
func NewBucket() Bucket {
	b := orm.NewBucket(BucketName, orm.NewSimpleObj(nil, new(Escrow))).
		WithIndex("seller", sellerIndex, true)
	return Bucket{Bucket: b}
}

func sellerIndex(obj orm.Object) ([]byte, error) {
	e := AsEscrow(obj)
	if e == nil {
		return nil, errors.Wrap(errors.ErrType, "not an escrow")
	}
	return e.Seller, nil
}

// GetEscrow returns the record stored under the authority, ErrNotFound if there
// is none
func (b Bucket) GetEscrow(db loom.ReadOnlyKVStore, authority loom.Address) (*Escrow, error) {
	obj, err := b.Get(db, authority)
	if err != nil {
		return nil, err
	}
	e := AsEscrow(obj)
	if e == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "escrow %s", authority)
	}
	return e, nil
}
