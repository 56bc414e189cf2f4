package cash

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/loomtest"
	"github.com/iov-one/loom/loomtest/assert"
	"github.com/iov-one/loom/store"
)

func TestMoveCoins(t *testing.T) {
	alice, bob := loomtest.NewAddress("alice"), loomtest.NewAddress("bob")

	cases := map[string]struct {
		start     uint64
		src, dest loom.Address
		amount    uint64
		wantErr   *errors.Error
		wantSrc   uint64
		wantDest  uint64
	}{
		"move part": {
			start: 100, src: alice, dest: bob, amount: 40,
			wantSrc: 60, wantDest: 40,
		},
		"move all": {
			start: 100, src: alice, dest: bob, amount: 100,
			wantSrc: 0, wantDest: 100,
		},
		"too much": {
			start: 10, src: alice, dest: bob, amount: 11,
			wantErr: errors.ErrInsufficientAmount, wantSrc: 10,
		},
		"zero": {
			start: 10, src: alice, dest: bob, amount: 0,
			wantErr: errors.ErrAmount, wantSrc: 10,
		},
		"empty source": {
			src: bob, dest: alice, amount: 1,
			wantErr: errors.ErrEmpty,
		},
		"self": {
			start: 10, src: alice, dest: alice, amount: 1,
			wantErr: errors.ErrInput, wantSrc: 10,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			db := store.MemStore()
			ctrl := NewController(NewBucket())
			if tc.start > 0 {
				assert.Nil(t, ctrl.IssueCoins(db, alice, tc.start))
			}

			err := ctrl.MoveCoins(db, tc.src, tc.dest, tc.amount)
			assert.IsErr(t, tc.wantErr, err)

			got, err := ctrl.Balance(db, alice)
			assert.Nil(t, err)
			if tc.src.Equals(alice) {
				assert.Equal(t, tc.wantSrc, got)
			}
			got, err = ctrl.Balance(db, bob)
			assert.Nil(t, err)
			assert.Equal(t, tc.wantDest, got)
		})
	}
}

func TestIssueOverflow(t *testing.T) {
	db := store.MemStore()
	ctrl := NewController(NewBucket())
	addr := loomtest.NewAddress("rich")
	assert.Nil(t, ctrl.IssueCoins(db, addr, ^uint64(0)))
	assert.IsErr(t, errors.ErrOverflow, ctrl.IssueCoins(db, addr, 1))
}

func TestGenesis(t *testing.T) {
	alice := loomtest.NewAddress("alice")
	raw, err := json.Marshal([]GenesisAccount{{Address: alice, Balance: 77}})
	assert.Nil(t, err)
	opts := loom.Options{optKey: raw}

	db := store.MemStore()
	assert.Nil(t, Initializer{}.FromGenesis(opts, db))
	got, err := NewController(NewBucket()).Balance(db, alice)
	assert.Nil(t, err)
	assert.Equal(t, uint64(77), got)
}

func TestSendHandler(t *testing.T) {
	alice, bob := loomtest.NewAddress("alice"), loomtest.NewAddress("bob")
	auth := &loomtest.CtxAuth{Key: "auth"}
	ctrl := NewController(NewBucket())
	h := NewSendHandler(auth, ctrl)

	db := store.MemStore()
	assert.Nil(t, ctrl.IssueCoins(db, alice, 50))

	tx := &loomtest.Tx{Msg: &SendMsg{Src: alice, Dest: bob, Amount: 20}}

	_, err := h.Deliver(auth.SetSigners(context.Background(), bob), db, tx)
	assert.IsErr(t, errors.ErrUnauthorized, err)

	ctx := auth.SetSigners(context.Background(), alice)
	_, err = h.Check(ctx, db, tx)
	assert.Nil(t, err)
	_, err = h.Deliver(ctx, db, tx)
	assert.Nil(t, err)

	got, err := ctrl.Balance(db, bob)
	assert.Nil(t, err)
	assert.Equal(t, uint64(20), got)

	bad := &loomtest.Tx{Msg: &SendMsg{Src: alice, Dest: bob}}
	_, err = h.Check(ctx, db, bad)
	assert.IsErr(t, errors.ErrAmount, err)
}
