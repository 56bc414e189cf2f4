package token

import (
	"math"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/gconf"
	"github.com/iov-one/loom/orm"
)

const (
	// MintBucketName is where mints are stored
	MintBucketName = "mint"
	// HoldingBucketName is where holdings are stored
	HoldingBucketName = "holding"
)

// Mint describes one fungible asset
type Mint struct {
	Decimals uint32
	// Supply is the sum of all holdings of this mint
	Supply uint64
}

var _ orm.Model = (*Mint)(nil)

// Marshal encodes the mint in protobuf wire format
func (m *Mint) Marshal() ([]byte, error) {
	var w orm.ProtoWriter
	w.Uint(1, uint64(m.Decimals))
	w.Uint(2, m.Supply)
	return w.Result(), nil
}

// Unmarshal decodes the protobuf wire format
func (m *Mint) Unmarshal(bz []byte) error {
	*m = Mint{}
	return orm.ReadProtoFields(bz, func(field int, v uint64, b []byte) error {
		switch field {
		case 1:
			if v > math.MaxUint32 {
				return errors.Wrapf(errors.ErrInvalidModel, "decimals %d", v)
			}
			m.Decimals = uint32(v)
		case 2:
			m.Supply = v
		}
		return nil
	})
}

// Validate limits the number of decimals
func (m *Mint) Validate() error {
	if m.Decimals > 18 {
		return errors.Wrapf(errors.ErrInvalidModel, "decimals %d", m.Decimals)
	}
	return nil
}

// Holding is a balance of one mint owned by one address
type Holding struct {
	Owner  loom.Address
	Mint   loom.Address
	Amount uint64
	// Deposit is the native balance paid when the holding was opened,
	// returned when it is closed
	Deposit uint64
	// Program is set on holdings opened by a program. Only that program
	// can credit them.
	Program string
}

var _ orm.Model = (*Holding)(nil)

// Marshal encodes the holding in protobuf wire format
func (h *Holding) Marshal() ([]byte, error) {
	var w orm.ProtoWriter
	w.Bytes(1, h.Owner)
	w.Bytes(2, h.Mint)
	w.Uint(3, h.Amount)
	w.Uint(4, h.Deposit)
	w.Bytes(5, []byte(h.Program))
	return w.Result(), nil
}

// Unmarshal decodes the protobuf wire format
func (h *Holding) Unmarshal(bz []byte) error {
	*h = Holding{}
	return orm.ReadProtoFields(bz, func(field int, v uint64, b []byte) error {
		switch field {
		case 1:
			h.Owner = b
		case 2:
			h.Mint = b
		case 3:
			h.Amount = v
		case 4:
			h.Deposit = v
		case 5:
			h.Program = string(b)
		}
		return nil
	})
}

// Validate requires both owner and mint
func (h *Holding) Validate() error {
	if err := h.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := h.Mint.Validate(); err != nil {
		return errors.Wrap(err, "mint")
	}
	return nil
}

// Config holds the token ledger parameters set at genesis
type Config struct {
	// HoldingDeposit is the native balance paid to open a holding
	HoldingDeposit uint64 `json:"holding_deposit"`
}

var _ gconf.Configuration = (*Config)(nil)

// Marshal encodes the config in protobuf wire format
func (c *Config) Marshal() ([]byte, error) {
	var w orm.ProtoWriter
	w.Uint(1, c.HoldingDeposit)
	return w.Result(), nil
}

// Unmarshal decodes the protobuf wire format
func (c *Config) Unmarshal(bz []byte) error {
	*c = Config{}
	return orm.ReadProtoFields(bz, func(field int, v uint64, b []byte) error {
		if field == 1 {
			c.HoldingDeposit = v
		}
		return nil
	})
}

// Validate always passes
func (c *Config) Validate() error {
	return nil
}

// AsMint will safely type-cast any value from Bucket
func AsMint(obj orm.Object) *Mint {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Mint)
}

// AsHolding will safely type-cast any value from Bucket
func AsHolding(obj orm.Object) *Holding {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Holding)
}

// NewMintBucket returns a bucket of mints keyed by the mint address
func NewMintBucket() orm.Bucket {
	return orm.NewBucket(MintBucketName, orm.NewSimpleObj(nil, new(Mint)))
}

// NewHoldingBucket returns a bucket of holdings keyed by the holding
// address and indexed by owner
func NewHoldingBucket() orm.Bucket {
	return orm.NewBucket(HoldingBucketName, orm.NewSimpleObj(nil, new(Holding))).
		WithIndex("owner", holdingOwner, false)
}

func holdingOwner(obj orm.Object) ([]byte, error) {
	h := AsHolding(obj)
	if h == nil {
		return nil, errors.Wrap(errors.ErrType, "not a holding")
	}
	return h.Owner, nil
}

// AssociatedAddress returns the holding address a user gets for a mint
// when opening it with OpenHoldingMsg
func AssociatedAddress(owner, mint loom.Address) (loom.Address, error) {
	addr, _, err := loom.FindDerivedAddress(ProgramName, owner, mint)
	return addr, err
}
