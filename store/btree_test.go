package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it Iterator) []Model {
	t.Helper()
	defer it.Close()
	var res []Model
	for ; it.Valid(); it.Next() {
		res = append(res, Model{Key: it.Key(), Value: it.Value()})
	}
	return res
}

func TestCacheWrapGetSet(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("a"), []byte("1")))
	require.NoError(t, base.Set([]byte("b"), []byte("2")))

	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("c"), []byte("3")))
	require.NoError(t, cache.Delete([]byte("a")))

	v, err := cache.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)
	has, err := cache.Has([]byte("c"))
	require.NoError(t, err)
	assert.True(t, has)

	// parent is untouched until Write
	v, err = base.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	has, err = base.Has([]byte("c"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, cache.Write())
	v, err = base.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = base.Get([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
}

func TestCacheWrapDiscard(t *testing.T) {
	base := MemStore()
	require.NoError(t, base.Set([]byte("k"), []byte("v")))

	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("k"), []byte("changed")))
	require.NoError(t, cache.Set([]byte("n"), []byte("new")))
	cache.Discard()

	v, err := base.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	has, err := base.Has([]byte("n"))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCacheWrapIterators(t *testing.T) {
	base := MemStore()
	for _, k := range []string{"a", "c", "e", "g"} {
		require.NoError(t, base.Set([]byte(k), []byte("base-"+k)))
	}
	cache := base.CacheWrap()
	require.NoError(t, cache.Set([]byte("b"), []byte("new-b")))
	require.NoError(t, cache.Set([]byte("c"), []byte("new-c")))
	require.NoError(t, cache.Delete([]byte("e")))

	cases := map[string]struct {
		start, end []byte
		want       []string
	}{
		"full range": {
			want: []string{"a=base-a", "b=new-b", "c=new-c", "g=base-g"},
		},
		"from b": {
			start: []byte("b"),
			want:  []string{"b=new-b", "c=new-c", "g=base-g"},
		},
		"until e": {
			end:  []byte("e"),
			want: []string{"a=base-a", "b=new-b", "c=new-c"},
		},
		"b to f": {
			start: []byte("b"),
			end:   []byte("f"),
			want:  []string{"b=new-b", "c=new-c"},
		},
		"empty range": {
			start: []byte("x"),
			want:  nil,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			it, err := cache.Iterator(tc.start, tc.end)
			require.NoError(t, err)
			var got []string
			for _, m := range collect(t, it) {
				got = append(got, string(m.Key)+"="+string(m.Value))
			}
			assert.Equal(t, tc.want, got)

			rit, err := cache.ReverseIterator(tc.start, tc.end)
			require.NoError(t, err)
			var rev []string
			for _, m := range collect(t, rit) {
				rev = append(rev, string(m.Key)+"="+string(m.Value))
			}
			for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
				rev[i], rev[j] = rev[j], rev[i]
			}
			assert.Equal(t, tc.want, rev)
		})
	}
}

func TestNestedCacheWrap(t *testing.T) {
	base := MemStore()
	outer := base.CacheWrap()
	require.NoError(t, outer.Set([]byte("x"), []byte("1")))

	inner := outer.CacheWrap()
	require.NoError(t, inner.Set([]byte("y"), []byte("2")))
	v, err := inner.Get([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	require.NoError(t, inner.Write())

	v, err = outer.Get([]byte("y"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	has, err := base.Has([]byte("y"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, outer.Write())
	has, err = base.Has([]byte("y"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSliceIteratorPanicsPastEnd(t *testing.T) {
	it := NewSliceIterator([]Model{{Key: []byte("a"), Value: []byte("b")}})
	assert.True(t, it.Valid())
	it.Next()
	assert.False(t, it.Valid())
	assert.Panics(t, func() { it.Next() })
}
