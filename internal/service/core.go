// Package service wraps the marketplace engine with transaction
// serialization, persistence fan-out, audit logging, and structured logging.
// Handlers and background jobs talk to the services, never to the engine
// directly.
package service

import (
	"sync"

	"github.com/alanyoungcy/nftshop/internal/market"
)

// Core owns the engine and the transaction lock. The engine itself is
// single-threaded; Core serializes every state-changing call so concurrent
// HTTP requests execute one at a time. Reentrant calls from payment hooks
// run inside the holder's critical section and must not re-acquire the
// lock, which is why the lock lives here and not in the engine.
type Core struct {
	mu     sync.Mutex
	engine *market.Marketplace
}

// NewCore wraps an engine for shared use by the services.
func NewCore(engine *market.Marketplace) *Core {
	return &Core{engine: engine}
}

// tx runs fn with exclusive access to the engine.
func (c *Core) tx(fn func(*market.Marketplace) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.engine)
}

// view runs fn with exclusive access to the engine for read-only queries.
// Reads take the same lock because the engine's maps are mutated in place
// by concurrent writers.
func (c *Core) view(fn func(*market.Marketplace)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.engine)
}
