package saltconsole

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/saltconsole/cluster/state"
)

// StoreProvider represents an object that can provide a state store.
type StoreProvider interface {
	Store() *state.Store
}

// DB exposes the state store of the current view activation in a
// consistent way.
type DB struct {
	store atomic.Pointer[state.Store]

	prov    StoreProvider
	changes chan uint64
	cancel  context.CancelFunc
}

// NewDB returns a database.
func NewDB(prov StoreProvider) (*DB, error) {
	if prov == nil {
		return nil, errors.New("db: p cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &DB{
		prov:    prov,
		changes: make(chan uint64, 1),
		cancel:  cancel,
	}

	d.store.Store(prov.Store())

	go d.watch(ctx)

	return d, nil
}

// Store returns the current state store.
func (d *DB) Store() *state.Store {
	s := d.store.Load()

	select {
	case <-s.AbandonCh():
		// Once the store has been abandoned, get the latest store.
		s = d.prov.Store()
		d.store.Store(s)
	default:
	}
	return s
}

// Changes returns a channel that receives the store index whenever the
// jobs or minions of the current store change. A provider must swap in
// its new store before abandoning the old one.
func (d *DB) Changes() <-chan uint64 {
	return d.changes
}

func (d *DB) watch(ctx context.Context) {
	var (
		last uint64
		prev *state.Store
	)

	for {
		store := d.Store()

		ws := memdb.NewWatchSet()
		ws.Add(ctx.Done())
		ws.Add(store.AbandonCh())
		idx, err := store.Index(ws, "jobs", "minions")
		if err == nil && (store != prev || idx != last) {
			last, prev = idx, store

			select {
			case d.changes <- idx:
			default:
			}
		}

		ws.Watch(nil)
		if ctx.Err() != nil {
			return
		}
	}
}

// Close closes the database.
func (d *DB) Close() error {
	d.cancel()
	return nil
}
