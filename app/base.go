package app

import (
	abci "github.com/tendermint/tendermint/abci/types"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
)

// BaseApp adds DeliverTx, CheckTx, and BeginBlock
// handlers to the storage and query functionality of StoreApp
type BaseApp struct {
	*StoreApp
	decoder loom.TxDecoder
	handler loom.Handler
	debug   bool
}

var _ abci.Application = BaseApp{}

// NewBaseApp constructs a basic abci application
func NewBaseApp(
	store *StoreApp,
	decoder loom.TxDecoder,
	handler loom.Handler,
	debug bool,
) BaseApp {
	return BaseApp{
		StoreApp: store,
		decoder:  decoder,
		handler:  handler,
		debug:    debug,
	}
}

// DeliverTx - ABCI - dispatches to the handler.
// All writes of the transaction go to a cache that is written
// only if the handler succeeds.
func (b BaseApp) DeliverTx(txBytes []byte) abci.ResponseDeliverTx {
	tx, err := b.loadTx(txBytes)
	if err != nil {
		return loom.DeliverTxError(err, b.debug)
	}

	ctx := loom.WithLogInfo(b.BlockContext(),
		"call", "deliver_tx",
		"path", loom.GetPath(tx))

	cache := b.DeliverStore().CacheWrap()
	res, err := b.handler.Deliver(ctx, cache, tx)
	if err != nil {
		cache.Discard()
		return loom.DeliverTxError(err, b.debug)
	}
	if err := cache.Write(); err != nil {
		return loom.DeliverTxError(err, b.debug)
	}
	return loom.DeliverOrError(res, nil, b.debug)
}

// CheckTx - ABCI - dispatches to the handler
func (b BaseApp) CheckTx(txBytes []byte) abci.ResponseCheckTx {
	tx, err := b.loadTx(txBytes)
	if err != nil {
		return loom.CheckTxError(err, b.debug)
	}

	ctx := loom.WithLogInfo(b.BlockContext(),
		"call", "check_tx",
		"path", loom.GetPath(tx))

	cache := b.CheckStore().CacheWrap()
	res, err := b.handler.Check(ctx, cache, tx)
	if err != nil {
		cache.Discard()
		return loom.CheckTxError(err, b.debug)
	}
	if err := cache.Write(); err != nil {
		return loom.CheckTxError(err, b.debug)
	}
	return loom.CheckOrError(res, nil, b.debug)
}

// loadTx calls the decoder, and capture any panics
func (b BaseApp) loadTx(txBytes []byte) (tx loom.Tx, err error) {
	defer errors.Recover(&err)
	tx, err = b.decoder(txBytes)
	return
}
