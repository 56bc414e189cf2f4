package server

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"

	"github.com/tendermint/iavl"
	abci "github.com/tendermint/tendermint/abci/types"
	dbm "github.com/tendermint/tendermint/libs/db"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/types"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	iavlstore "github.com/iov-one/loom/store/iavl"
)

const (
	flagUntilError = "error"
	flagMaxTries   = "max"
)

type retryArgs struct {
	dbPath     string
	blockPath  string
	debug      bool
	untilError bool
	maxTries   int
}

func parseRetryArgs(args []string) (retryArgs, error) {
	if len(args) < 2 {
		return retryArgs{}, errors.Wrap(errors.ErrInput,
			"usage: cmd retry <path to abci.db> <path to block.json> [-debug] [-error] [-max=N]")
	}
	res := retryArgs{
		dbPath:    args[0],
		blockPath: args[1],
	}
	getBlockFlags := flag.NewFlagSet("retry", flag.ExitOnError)
	getBlockFlags.BoolVar(&res.debug, flagDebug, false, "print out debug info")
	getBlockFlags.BoolVar(&res.untilError, flagUntilError, false, "retry multiple times until an error appears")
	getBlockFlags.IntVar(&res.maxTries, flagMaxTries, 10, "maximum number of times to retry if -error is passed")
	err := getBlockFlags.Parse(args[2:])
	return res, err
}

// InlineAppGenerator should be implemented by the app/init.go file
type InlineAppGenerator func(loom.CommitKVStore, log.Logger, bool) abci.Application

type appBuilder func(loom.CommitKVStore) abci.Application

func wrapInlineAppGenerator(gen InlineAppGenerator, logger log.Logger, debug bool) appBuilder {
	return func(kv loom.CommitKVStore) abci.Application {
		return gen(kv, logger, debug)
	}
}

// RetryCmd takes the app state and the last block from the file system.
// It verifies that they match, then rolls back one block and re-runs the
// given block, comparing the recomputed app hash with the stored one.
//
// A different app hash is reported as ErrState. With -error the block is
// re-run up to -max times until the hash differs.
func RetryCmd(makeApp InlineAppGenerator, logger log.Logger, home string, args []string) error {
	flags, err := parseRetryArgs(args)
	if err != nil {
		return err
	}

	logger.Info("Loading block", "path", flags.blockPath)
	blockJSON, err := ioutil.ReadFile(flags.blockPath)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	var block *types.Block
	if err := cdc.UnmarshalJSON(blockJSON, &block); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}

	logger.Info("Loading database", "path", flags.dbPath)
	db, err := openDb(flags.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	tree, ver, err := readTree(db, 0)
	if err != nil {
		return errors.Wrap(err, "error reading abci data")
	}

	if ver != block.Header.Height {
		return errors.Wrapf(errors.ErrState,
			"height mismatch - block=%d, abcistore=%d", block.Header.Height, ver)
	}

	builder := wrapInlineAppGenerator(makeApp, logger, flags.debug)
	tries := 1
	if flags.untilError {
		tries = flags.maxTries
	}
	return retryBlock(builder, logger, tree, block, tries)
}

func readTree(db dbm.DB, version int) (*iavl.MutableTree, int64, error) {
	tree := iavl.NewMutableTree(db, iavlstore.DefaultCacheSize)
	ver, err := tree.LoadVersion(int64(version))
	if err != nil {
		return nil, 0, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if ver == 0 {
		return nil, 0, errors.Wrap(errors.ErrState, "iavl tree is empty")
	}
	return tree, ver, nil
}

// retryBlock re-runs the block at most tries times, stopping at the
// first app hash that differs from the stored one
func retryBlock(builder appBuilder, logger log.Logger, tree *iavl.MutableTree, block *types.Block, tries int) error {
	origHash := tree.Hash()
	logger.Info("Original state", "height", block.Header.Height, "hash", fmt.Sprintf("%X", origHash))

	for i := 0; i < tries; i++ {
		hash, err := rerunBlock(builder, logger, tree, block)
		if err != nil {
			return err
		}
		if !bytes.Equal(origHash, hash) {
			return errors.Wrapf(errors.ErrState, "app hash mismatch at height %d on run %d: %X != %X",
				block.Header.Height, i+1, hash, origHash)
		}
	}
	return nil
}

func rerunBlock(builder appBuilder, logger log.Logger, tree *iavl.MutableTree, block *types.Block) ([]byte, error) {
	backHeight := block.Header.Height - 1

	logger.Debug("Rollback", "height", backHeight)
	if _, err := tree.LoadVersionForOverwriting(backHeight); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}

	kv := iavlstore.NewCommitStoreFromTree(tree)
	app := builder(kv)

	app.BeginBlock(abci.RequestBeginBlock{Hash: block.Header.Hash(), Header: toAbciHeader(block.Header)})
	for i, tx := range block.Txs {
		res := app.DeliverTx(tx)
		if res.Code != abci.CodeTypeOK {
			logger.Info("Tx failed", "index", i, "code", res.Code, "log", res.Log)
		}
	}
	app.EndBlock(abci.RequestEndBlock{Height: block.Header.Height})
	hash := app.Commit().Data
	logger.Info("Recomputed state", "height", block.Header.Height, "hash", fmt.Sprintf("%X", hash))
	return hash, nil
}

func toAbciHeader(h types.Header) abci.Header {
	lb := h.LastBlockID
	return abci.Header{
		Version: abci.Version{
			Block: uint64(h.Version.Block),
			App:   uint64(h.Version.App),
		},
		ChainID:  h.ChainID,
		Height:   h.Height,
		Time:     h.Time,
		NumTxs:   h.NumTxs,
		TotalTxs: h.TotalTxs,
		LastBlockId: abci.BlockID{
			Hash: lb.Hash,
			PartsHeader: abci.PartSetHeader{
				Total: int32(lb.PartsHeader.Total),
				Hash:  lb.PartsHeader.Hash,
			},
		},
		LastCommitHash:     h.LastCommitHash,
		DataHash:           h.DataHash,
		ValidatorsHash:     h.ValidatorsHash,
		NextValidatorsHash: h.NextValidatorsHash,
		ConsensusHash:      h.ConsensusHash,
		AppHash:            h.AppHash,
		LastResultsHash:    h.LastResultsHash,
		EvidenceHash:       h.EvidenceHash,
		ProposerAddress:    h.ProposerAddress,
	}
}
