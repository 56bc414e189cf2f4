package std

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/crypto/ed25519"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/app"
	"github.com/iov-one/loom/errors"
)

const (
	devTicker  = "DEV"
	devSupply  = 123456789
	devCash    = 1000000
	devDeposit = 10
)

// DevMint returns the mint address used for a ticker by the
// dev genesis generated on init
func DevMint(ticker string) loom.Address {
	h := sha256.Sum256([]byte("loom:mint:" + ticker))
	return loom.Address(h[:])
}

// GenInitOptions will produce some basic options for one rich
// account, to use for dev mode
//
// You can pass the hex address of the account, otherwise a new
// key is generated and printed out
func GenInitOptions(args []string) (json.RawMessage, error) {
	var addr loom.Address
	if len(args) > 0 {
		bz, err := hex.DecodeString(args[0])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "address %q", args[0])
		}
		addr = loom.Address(bz)
		if err := addr.Validate(); err != nil {
			return nil, err
		}
	} else {
		// if no address provided, auto-generate one
		// and print out the keys
		a, keys, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		addr = a
		fmt.Println(keys)
	}

	opts := fmt.Sprintf(`
          {
            "cash": [
              {"address": "%s", "balance": %d}
            ],
            "conf": {
              "token": {"holding_deposit": %d}
            },
            "token": {
              "mints": [
                {"address": "%s", "decimals": 6}
              ],
              "holdings": [
                {"owner": "%s", "mint": "%s", "amount": %d}
              ]
            }
          }
	`, addr, devCash, devDeposit, DevMint(devTicker), addr, DevMint(devTicker), devSupply)
	return []byte(opts), nil
}

// GenerateApp is used to create a stub for server/start.go command
func GenerateApp(home string, logger log.Logger, debug bool) (abci.Application, error) {
	// db goes in a subdir, but "" -> "" for memdb
	var dbPath string
	if home != "" {
		dbPath = filepath.Join(home, "loom.db")
	}

	application, err := Application("loomd", Stack(), TxDecoder, dbPath, debug)
	if err != nil {
		return nil, err
	}
	application.WithLogger(logger)
	return application, nil
}

// InlineApp will take a previously prepared CommitStore and return a complete Application
func InlineApp(kv loom.CommitKVStore, logger log.Logger, debug bool) abci.Application {
	application := inlineApplication("loomd", kv, Stack(), TxDecoder, debug)
	application.WithLogger(logger)
	return application
}

// TxDecoder decodes the amino encoded transactions of the chain
func TxDecoder(bz []byte) (loom.Tx, error) {
	return app.TxDecoder(bz)
}

type output struct {
	Pubkey string `json:"pub_key"`
	Secret string `json:"secret"`
}

// GenerateKey returns the address of a new ed25519 key,
// along with a json representation of the keys.
// You can give cash and tokens to this address and
// sign transactions with the secret
func GenerateKey() (loom.Address, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrHuman, err.Error())
	}
	out := output{
		Pubkey: hex.EncodeToString(pub),
		Secret: hex.EncodeToString(priv),
	}
	keys, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return loom.Address(pub), string(keys), nil
}
