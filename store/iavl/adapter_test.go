package iavl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tendermint/libs/db"
)

func TestCommitStoreVersions(t *testing.T) {
	s := MakeCommitStore(dbm.NewMemDB())
	id, err := s.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), id.Version)

	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("foo"), []byte("bar")))
	require.NoError(t, cache.Write())

	// not visible as committed state yet
	v, err := s.Get([]byte("foo"))
	require.NoError(t, err)
	assert.Nil(t, v)

	id, err = s.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Version)
	assert.NotEmpty(t, id.Hash)

	v, err = s.Get([]byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, []byte("bar"), v)
}

func TestCommitStoreDiscard(t *testing.T) {
	s := MakeCommitStore(dbm.NewMemDB())
	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("a"), []byte("1")))
	cache.Discard()
	_, err := s.Commit()
	require.NoError(t, err)

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCommitStoreReload(t *testing.T) {
	db := dbm.NewMemDB()
	s := MakeCommitStore(db)
	cache := s.CacheWrap()
	require.NoError(t, cache.Set([]byte("k1"), []byte("v1")))
	require.NoError(t, cache.Set([]byte("k2"), []byte("v2")))
	require.NoError(t, cache.Write())
	committed, err := s.Commit()
	require.NoError(t, err)

	reopened := MakeCommitStore(db)
	require.NoError(t, reopened.LoadLatestVersion())
	latest, err := reopened.LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, committed, latest)

	it, err := reopened.CacheWrap().Iterator(nil, nil)
	require.NoError(t, err)
	defer it.Close()
	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"k1", "k2"}, keys)
}
