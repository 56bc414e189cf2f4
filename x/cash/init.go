package cash

import "github.com/iov-one/loom"

const optKey = "cash"

// GenesisAccount is used to parse the json from genesis file
// use loom.Address, so address in hex, not base64
type GenesisAccount struct {
	Address loom.Address `json:"address"`
	Balance uint64       `json:"balance"`
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ loom.Initializer = Initializer{}

// FromGenesis will parse initial account info from genesis
// and save it to the database
func (Initializer) FromGenesis(opts loom.Options, kv loom.KVStore) error {
	var accts []GenesisAccount
	if err := opts.ReadOptions(optKey, &accts); err != nil {
		return err
	}
	ctrl := NewController(NewBucket())
	for _, acct := range accts {
		if err := acct.Address.Validate(); err != nil {
			return err
		}
		if err := ctrl.IssueCoins(kv, acct.Address, acct.Balance); err != nil {
			return err
		}
	}
	return nil
}
