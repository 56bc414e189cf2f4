package server

import (
	"encoding/json"
	"io/ioutil"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/store"
)

// ValidateGenesisCmd loads the app_state of every given genesis file
// into a throw away store, reporting the first one that fails.
func ValidateGenesisCmd(ini loom.Initializer, args []string) error {
	if len(args) == 0 {
		return errors.Wrap(errors.ErrInput, "usage: cmd validate <genesis.json> [<genesis.json>...]")
	}
	for _, path := range args {
		if err := validateGenesis(ini, path); err != nil {
			return errors.Wrap(err, path)
		}
	}
	return nil
}

func validateGenesis(ini loom.Initializer, genesisPath string) error {
	b, err := ioutil.ReadFile(genesisPath)
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}

	var genesis struct {
		State loom.Options `json:"app_state"`
	}
	if err := json.Unmarshal(b, &genesis); err != nil {
		return errors.Wrap(errors.ErrInput, "cannot JSON deserialize genesis")
	}

	// Use in memory store because we want to discard the result.
	db := store.MemStore()
	if err := ini.FromGenesis(genesis.State, db); err != nil {
		return errors.Wrap(err, "cannot initialize from genesis")
	}
	return nil
}
