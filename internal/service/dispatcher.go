package service

import (
	"context"
	"sync"

	"github.com/storeloom/console/internal/store"
)

// dispatcher coordinates operation lifecycles against one entity store.
//
// Mutation families run FIFO: two creates issued back to back hit the
// platform one after the other, so their resolve order matches issue order
// and the store never interleaves conflicting transitions.
//
// Fetches supersede instead of queueing: starting a new fetch cancels the
// in-flight one, and a superseded fetch applies no transitions at all,
// however it ended. The successor owns the fetch flag from the moment it
// begins; letting the loser settle it would clear the winner's pending state.
type dispatcher[E store.Entity, T any] struct {
	st *store.Store[E, T]

	famLocks [5]sync.Mutex

	fetchMu     sync.Mutex
	fetchCancel context.CancelFunc
	fetchGen    uint64
}

func newDispatcher[E store.Entity, T any](st *store.Store[E, T]) *dispatcher[E, T] {
	return &dispatcher[E, T]{st: st}
}

// mutate runs one mutating operation through its full lifecycle. The call's
// mutation is applied only on success; on failure the collection is left
// untouched and the family's error slot records the reason.
func (d *dispatcher[E, T]) mutate(ctx context.Context, op store.Op, call func(context.Context) (store.Mutation[E], error)) error {
	fam := store.FamilyOf(op)
	lock := &d.famLocks[int(fam)]
	lock.Lock()
	defer lock.Unlock()

	d.st.Begin(op)
	m, err := call(ctx)
	if err != nil {
		d.st.Fail(op, err)
		return err
	}
	d.st.Resolve(op, m)
	return nil
}

// beginFetch cancels any in-flight fetch and registers this one as current.
func (d *dispatcher[E, T]) beginFetch(ctx context.Context) (context.Context, uint64) {
	d.fetchMu.Lock()
	defer d.fetchMu.Unlock()
	if d.fetchCancel != nil {
		d.fetchCancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	d.fetchCancel = cancel
	d.fetchGen++
	return fctx, d.fetchGen
}

func (d *dispatcher[E, T]) isCurrentFetch(gen uint64) bool {
	d.fetchMu.Lock()
	defer d.fetchMu.Unlock()
	return gen == d.fetchGen
}

// fetchList runs a collection fetch. A fetch superseded mid-flight returns
// context.Canceled without touching the store, whether it was interrupted,
// had already failed, or had already completed.
func (d *dispatcher[E, T]) fetchList(ctx context.Context, op store.Op, call func(context.Context) ([]E, store.Pagination, error)) error {
	fctx, gen := d.beginFetch(ctx)
	d.st.Begin(op)

	items, page, err := call(fctx)
	if err != nil {
		// A stale fetch never transitions the store, even when it failed
		// at the transport before the cancel arrived.
		if !d.isCurrentFetch(gen) {
			return context.Canceled
		}
		d.st.Fail(op, err)
		return err
	}
	if !d.isCurrentFetch(gen) {
		return context.Canceled
	}
	d.st.ResolveList(op, items, page)
	return nil
}

// fetchOne runs a single-entity fetch through the same supersession rules.
func (d *dispatcher[E, T]) fetchOne(ctx context.Context, op store.Op, call func(context.Context) (E, error)) error {
	fctx, gen := d.beginFetch(ctx)
	d.st.Begin(op)

	item, err := call(fctx)
	if err != nil {
		if !d.isCurrentFetch(gen) {
			return context.Canceled
		}
		d.st.Fail(op, err)
		return err
	}
	if !d.isCurrentFetch(gen) {
		return context.Canceled
	}
	d.st.Resolve(op, store.Upsert(item))
	return nil
}
