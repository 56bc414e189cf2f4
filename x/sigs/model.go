package sigs

import (
	"golang.org/x/crypto/ed25519"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/orm"
)

// BucketName is where we store the accounts
const BucketName = "sigs"

// maxSequenceValue is the greatest sequence a javascript client can
// represent safely (2^53 - 1)
const maxSequenceValue = (1 << 53) - 1

// User holds the public key of a signer and its next expected sequence
type User struct {
	Pubkey   []byte
	Sequence int64
}

var _ orm.Model = (*User)(nil)

// Marshal encodes the user in protobuf wire format
func (u *User) Marshal() ([]byte, error) {
	var w orm.ProtoWriter
	w.Bytes(1, u.Pubkey)
	w.Int(2, u.Sequence)
	return w.Result(), nil
}

// Unmarshal decodes the protobuf wire format
func (u *User) Unmarshal(bz []byte) error {
	*u = User{}
	return orm.ReadProtoFields(bz, func(field int, v uint64, b []byte) error {
		switch field {
		case 1:
			u.Pubkey = b
		case 2:
			u.Sequence = int64(v)
		}
		return nil
	})
}

// Validate checks the sequence range and key length
func (u *User) Validate() error {
	if u.Sequence < 0 {
		return errors.Wrap(ErrInvalidSequence, "negative")
	}
	if len(u.Pubkey) != ed25519.PublicKeySize {
		return errors.Wrap(errors.ErrInvalidModel, "pubkey")
	}
	return nil
}

// CheckAndIncrementSequence implements check and increment operation.
// If current sequence value is the same as given expected value then it is
// incremented. Otherwise an error is returned.
func (u *User) CheckAndIncrementSequence(expected int64) error {
	if u.Sequence != expected {
		return errors.Wrapf(ErrInvalidSequence, "mismatch expected %d, got %d", u.Sequence, expected)
	}
	next := u.Sequence + 1
	if next <= 0 || next > maxSequenceValue {
		return errors.Wrap(errors.ErrOverflow, "sequence out of range")
	}
	u.Sequence = next
	return nil
}

// AsUser will safely type-cast any value from Bucket to a User
func AsUser(obj orm.Object) *User {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*User)
}

// NewUser constructs an object keyed by the public key
func NewUser(pubkey []byte) orm.Object {
	return orm.NewSimpleObj(pubkey, &User{Pubkey: pubkey})
}

// Bucket extends orm.Bucket with GetOrCreate
type Bucket struct {
	orm.Bucket
}

// NewBucket creates the proper bucket for this extension
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, NewUser(nil)),
	}
}

// GetOrCreate initializes a User if none exist for that key
func (b Bucket) GetOrCreate(db loom.ReadOnlyKVStore, pubkey []byte) (orm.Object, error) {
	obj, err := b.Get(db, pubkey)
	if err == nil && obj == nil {
		obj = NewUser(pubkey)
	}
	return obj, err
}

// NextSequence returns the sequence value the signer must use next.
// Counting starts at zero for unknown signers.
func NextSequence(db loom.ReadOnlyKVStore, signer loom.Address) (int64, error) {
	obj, err := NewBucket().Get(db, signer)
	if err != nil {
		return 0, errors.Wrap(err, "bucket get")
	}
	if u := AsUser(obj); u != nil {
		return u.Sequence, nil
	}
	return 0, nil
}
