// Package cli implements the command surface of the CoinKeeper client:
// account management, local entity edits and sync control. Commands operate
// on the sync engine and local storage; network access happens only through
// the auth service and the engine's transport.
package cli

import (
	"github.com/iudanet/coinkeeper/internal/client/auth"
	"github.com/iudanet/coinkeeper/internal/client/iocli"
	"github.com/iudanet/coinkeeper/internal/client/storage"
	"github.com/iudanet/coinkeeper/internal/client/sync"
)

// entityTypes are the finance entities the client manages. The sync core
// treats them as opaque strings; the CLI restricts input to known kinds.
var entityTypes = map[string]bool{
	"account":     true,
	"transaction": true,
	"budget":      true,
	"category":    true,
}

type Cli struct {
	io          iocli.IO
	authService *auth.Service
	engine      *sync.Engine
	entities    storage.EntityStore
}

func New(io iocli.IO, authService *auth.Service, engine *sync.Engine, entities storage.EntityStore) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		engine:      engine,
		entities:    entities,
	}
}

func (c *Cli) PrintUsage() {
	c.io.Println("CoinKeeper Client")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  coinkeeper [OPTIONS] COMMAND")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  --version      Show version information")
	c.io.Println("  --server URL   Server URL (default: http://localhost:8080)")
	c.io.Println("  --db PATH      Path to local database (default: coinkeeper-client.db)")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  register                          Register a new account")
	c.io.Println("  login                             Login to the sync server")
	c.io.Println("  logout                            Logout and drop the local session")
	c.io.Println("  status                            Show session and sync status")
	c.io.Println("  add <type> field=value ...        Add an entity (account, transaction, budget, category)")
	c.io.Println("  update <type> <id> field=value .. Update fields of an entity")
	c.io.Println("  delete <type> <id>                Delete an entity")
	c.io.Println("  list <type>                       List entities of a type")
	c.io.Println("  get <type> <id>                   Show one entity")
	c.io.Println("  sync                              Synchronize with the server")
	c.io.Println("  conflicts                         List unresolved conflicts")
	c.io.Println("  resolve <id> local|remote         Resolve a conflict")
	c.io.Println("  resolve <id> merge field=value .. Resolve a conflict with a custom payload")
	c.io.Println()
	c.io.Println("Examples:")
	c.io.Println("  coinkeeper register")
	c.io.Println("  coinkeeper add transaction amount=12.50 category=groceries note='weekly shop'")
	c.io.Println("  coinkeeper list transaction")
	c.io.Println("  coinkeeper update account 3f2a... name=Checking")
	c.io.Println("  coinkeeper sync")
	c.io.Println("  coinkeeper resolve phone-1:7 remote")
	c.io.Println("  coinkeeper --server https://example.com login")
}
