package orm

import "github.com/iov-one/loom"

// ConsumeIterator will read all remaining data into an
// array and close the iterator
func ConsumeIterator(itr loom.Iterator) []loom.Model {
	defer itr.Close()

	res := []loom.Model{}
	for ; itr.Valid(); itr.Next() {
		mod := loom.Model{
			Key:   itr.Key(),
			Value: itr.Value(),
		}
		res = append(res, mod)
	}
	return res
}

func queryPrefix(db loom.ReadOnlyKVStore, prefix []byte) ([]loom.Model, error) {
	itr, err := db.Iterator(prefixRange(prefix))
	if err != nil {
		return nil, err
	}
	return ConsumeIterator(itr), nil
}

// prefixRange turns a prefix into a (start, end) range.
// The end is the first key that doesn't start with the prefix,
// or nil if the prefix is all 0xff bytes.
func prefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	start := append([]byte(nil), prefix...)
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return start, end[:i+1]
		}
	}
	return start, nil
}
