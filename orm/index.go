package orm

import (
	"bytes"

	"github.com/gogo/protobuf/proto"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
)

const compactIdxPrefix = "_i."

// Indexer calculates the secondary index key for a given object.
// A nil key means the object is not indexed.
type Indexer func(Object) ([]byte, error)

// Index represents a secondary index on some data.
// It is indexed by an arbitrary key returned by Indexer.
// The value is one primary key (unique),
// Or a list of primary keys (!unique).
type Index struct {
	name   string
	id     []byte
	unique bool
	index  Indexer
	refKey func([]byte) []byte
}

var _ loom.QueryHandler = Index{}

// NewIndex constructs an index.
// Indexer calculates the index for an object
// unique enforces a unique constraint on the index
// refKey calculates the absolute dbkey for a ref
func NewIndex(name string, indexer Indexer, unique bool, refKey func([]byte) []byte) Index {
	return Index{
		name:   name,
		id:     append([]byte(compactIdxPrefix), []byte(name+":")...),
		index:  indexer,
		unique: unique,
		refKey: refKey,
	}
}

// Name returns the name of this index.
func (i Index) Name() string {
	return i.name
}

// IndexKey is the full key we store in the db, including prefix
func (i Index) IndexKey(key []byte) []byte {
	l := len(i.id)
	out := make([]byte, l+len(key))
	copy(out, i.id)
	copy(out[l:], key)
	return out
}

// Update handles updating the reference to the object in
// the secondary index.
//
// prev == nil means insert
// save == nil means delete
// both == nil is error
// if both != nil and prev.Key() != save.Key() this is an error
func (i Index) Update(db loom.KVStore, prev Object, save Object) error {
	switch {
	case prev == nil && save == nil:
		return errors.Wrap(errors.ErrHuman, "update requires at least one non-nil object")
	case prev == nil:
		key, err := i.index(save)
		if err != nil || key == nil {
			return err
		}
		return i.insert(db, key, save.Key())
	case save == nil:
		key, err := i.index(prev)
		if err != nil || key == nil {
			return err
		}
		return i.remove(db, key, prev.Key())
	}
	if !bytes.Equal(prev.Key(), save.Key()) {
		return errors.Wrap(errors.ErrMismatch, "primary key changed on update")
	}
	oldKey, err := i.index(prev)
	if err != nil {
		return err
	}
	newKey, err := i.index(save)
	if err != nil {
		return err
	}
	if bytes.Equal(oldKey, newKey) {
		return nil
	}
	if oldKey != nil {
		if err := i.remove(db, oldKey, prev.Key()); err != nil {
			return err
		}
	}
	if newKey != nil {
		return i.insert(db, newKey, save.Key())
	}
	return nil
}

// GetAt returns a list of all pk at that index (may be empty), or error
func (i Index) GetAt(db loom.ReadOnlyKVStore, index []byte) ([][]byte, error) {
	val, err := db.Get(i.IndexKey(index))
	if err != nil || val == nil {
		return nil, err
	}
	if i.unique {
		return [][]byte{val}, nil
	}
	return decodeRefs(val)
}

// Query handles queries from the QueryRouter, returning the
// primary objects referenced by the index
func (i Index) Query(db loom.ReadOnlyKVStore, mod string, data []byte) ([]loom.Model, error) {
	switch mod {
	case loom.KeyQueryMod:
		refs, err := i.GetAt(db, data)
		if err != nil {
			return nil, err
		}
		return i.loadRefs(db, refs)
	case loom.PrefixQueryMod:
		itr, err := db.Iterator(prefixRange(i.IndexKey(data)))
		if err != nil {
			return nil, err
		}
		var refs [][]byte
		for _, m := range ConsumeIterator(itr) {
			if i.unique {
				refs = append(refs, m.Value)
				continue
			}
			more, err := decodeRefs(m.Value)
			if err != nil {
				return nil, err
			}
			refs = append(refs, more...)
		}
		return i.loadRefs(db, refs)
	default:
		return nil, errors.Wrapf(errors.ErrInput, "unknown mod: %s", mod)
	}
}

func (i Index) loadRefs(db loom.ReadOnlyKVStore, refs [][]byte) ([]loom.Model, error) {
	res := make([]loom.Model, 0, len(refs))
	for _, ref := range refs {
		key := i.refKey(ref)
		val, err := db.Get(key)
		if err != nil {
			return nil, err
		}
		if val != nil {
			res = append(res, loom.Pair(key, val))
		}
	}
	return res, nil
}

func (i Index) insert(db loom.KVStore, key []byte, pk []byte) error {
	dbkey := i.IndexKey(key)
	cur, err := db.Get(dbkey)
	if err != nil {
		return err
	}
	if i.unique {
		if cur != nil {
			return errors.Wrapf(errors.ErrDuplicate, "index %s", i.name)
		}
		return db.Set(dbkey, pk)
	}
	refs, err := decodeRefs(cur)
	if err != nil {
		return err
	}
	for _, r := range refs {
		if bytes.Equal(r, pk) {
			return errors.Wrapf(errors.ErrDuplicate, "ref in index %s", i.name)
		}
	}
	return db.Set(dbkey, encodeRefs(append(refs, pk)))
}

func (i Index) remove(db loom.KVStore, key []byte, pk []byte) error {
	dbkey := i.IndexKey(key)
	cur, err := db.Get(dbkey)
	if err != nil {
		return err
	}
	if cur == nil {
		return errors.Wrapf(errors.ErrNotFound, "index %s", i.name)
	}
	if i.unique {
		if !bytes.Equal(cur, pk) {
			return errors.Wrapf(errors.ErrMismatch, "index %s", i.name)
		}
		return db.Delete(dbkey)
	}
	refs, err := decodeRefs(cur)
	if err != nil {
		return err
	}
	for n, r := range refs {
		if bytes.Equal(r, pk) {
			refs = append(refs[:n], refs[n+1:]...)
			if len(refs) == 0 {
				return db.Delete(dbkey)
			}
			return db.Set(dbkey, encodeRefs(refs))
		}
	}
	return errors.Wrapf(errors.ErrNotFound, "ref in index %s", i.name)
}

// encodeRefs stores a list of refs, each with a varint length prefix
func encodeRefs(refs [][]byte) []byte {
	var out []byte
	for _, r := range refs {
		out = append(out, proto.EncodeVarint(uint64(len(r)))...)
		out = append(out, r...)
	}
	return out
}

func decodeRefs(bz []byte) ([][]byte, error) {
	var refs [][]byte
	for len(bz) > 0 {
		l, n := proto.DecodeVarint(bz)
		if n == 0 || uint64(len(bz)-n) < l {
			return nil, errors.Wrap(errors.ErrInvalidModel, "corrupt index refs")
		}
		bz = bz[n:]
		refs = append(refs, append([]byte(nil), bz[:l]...))
		bz = bz[l:]
	}
	return refs, nil
}
