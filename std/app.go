/*
Package std links together all the various components
to construct the loom swap chain.
*/
package std

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/iov-one/loom"
	"github.com/iov-one/loom/app"
	"github.com/iov-one/loom/errors"
	"github.com/iov-one/loom/store/iavl"
	"github.com/iov-one/loom/x"
	"github.com/iov-one/loom/x/cash"
	"github.com/iov-one/loom/x/escrow"
	"github.com/iov-one/loom/x/sigs"
	"github.com/iov-one/loom/x/token"
	"github.com/iov-one/loom/x/utils"
)

func init() {
	app.RegisterMsg(&cash.SendMsg{}, "cash/send")
	app.RegisterMsg(&token.OpenHoldingMsg{}, "token/open")
	app.RegisterMsg(&token.TransferMsg{}, "token/transfer")
	app.RegisterMsg(&token.CloseHoldingMsg{}, "token/close")
	app.RegisterMsg(&escrow.InitializeMsg{}, "escrow/initialize")
	app.RegisterMsg(&escrow.AcceptMsg{}, "escrow/accept")
	app.RegisterMsg(&escrow.CancelMsg{}, "escrow/cancel")
}

// Authenticator returns the typical authentication,
// just using public key signatures
func Authenticator() x.Authenticator {
	return x.ChainAuth(sigs.Authenticate{})
}

// Chain returns a chain of decorators, to handle authentication,
// logging, and recovery
func Chain() app.Decorators {
	return app.ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		utils.NewActionTagger(),
		// on CheckTx, bad tx don't affect state
		utils.NewSavepoint().OnCheck(),
		sigs.NewDecorator(),
		// handler writes are kept apart from the signature
		// sequence updates until the message succeeds
		utils.NewSavepoint().OnDeliver(),
	)
}

// Router returns a router dispatching to the cash, token and
// escrow handlers
func Router(authFn x.Authenticator) *app.Router {
	r := app.NewRouter()
	cashCtrl := cash.NewController(cash.NewBucket())
	tokens := token.NewController(cashCtrl)

	cash.RegisterRoutes(r, authFn, cashCtrl)
	token.RegisterRoutes(r, authFn, tokens)
	escrow.RegisterRoutes(r, authFn, tokens)
	return r
}

// QueryRouter returns a default query router,
// allowing access to "/wallets", "/auth", "/mints", "/holdings",
// "/escrows" and their indexes
func QueryRouter() loom.QueryRouter {
	r := loom.NewQueryRouter()
	r.RegisterAll(
		cash.RegisterQuery,
		sigs.RegisterQuery,
		token.RegisterQuery,
		escrow.RegisterQuery,
	)
	return r
}

// Initializers reads the genesis sections of every extension
func Initializers() loom.Initializer {
	return loom.ChainInitializers(
		cash.Initializer{},
		token.Initializer{},
	)
}

// Stack wires up a standard router with a standard decorator
// chain. This can be passed into BaseApp.
func Stack() loom.Handler {
	authFn := Authenticator()
	return Chain().WithHandler(Router(authFn))
}

// Application constructs a basic ABCI application with
// the given arguments. If you are not sure what to use
// for the Handler, just use Stack().
func Application(name string, h loom.Handler,
	tx loom.TxDecoder, dbPath string, debug bool) (app.BaseApp, error) {

	kv, err := CommitKVStore(dbPath)
	if err != nil {
		return app.BaseApp{}, err
	}
	return inlineApplication(name, kv, h, tx, debug), nil
}

func inlineApplication(name string, kv loom.CommitKVStore, h loom.Handler, tx loom.TxDecoder, debug bool) app.BaseApp {
	store := app.NewStoreApp(name, kv, QueryRouter(), context.Background())
	store.WithInit(Initializers())
	return app.NewBaseApp(store, tx, h, debug)
}

// CommitKVStore returns an initialized KVStore that persists
// the data to the named path.
func CommitKVStore(dbPath string) (loom.CommitKVStore, error) {
	// memory backed case, just for testing
	if dbPath == "" {
		return iavl.NewCommitStore("", "")
	}

	// Expand the path fully
	path, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "invalid database name: %s", dbPath)
	}

	// Some external calls accidently add a ".db", which is now removed
	path = strings.TrimSuffix(path, filepath.Ext(path))

	// Split the database name into it's components (dir, name)
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	return iavl.NewCommitStore(dir, name)
}
