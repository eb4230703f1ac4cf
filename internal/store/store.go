package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Entity is anything the store can hold in its normalized collection.
type Entity interface {
	EntityID() string
}

// Pagination mirrors the upstream platform's page metadata for the last
// fulfilled collection fetch.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Snapshot is an immutable view of the store taken at one point in time.
// Items and Filters are copies; Derived is the tree built by the derive
// hook at the last mutation and must be treated as read-only.
type Snapshot[E Entity, T any] struct {
	Items      []E
	Selected   *E
	Filters    map[string]string
	Pagination Pagination
	Loading    Flags
	Errors     Errors
	Derived    T
	DeriveErr  error
}

// LoadingFor reports whether the given family has an operation in flight.
func (s Snapshot[E, T]) LoadingFor(fam Family) bool { return s.Loading.get(fam) }

// ErrorFor returns the last failure recorded for the given family.
func (s Snapshot[E, T]) ErrorFor(fam Family) error { return s.Errors.get(fam) }

// Find returns the collection entry with the given ID.
func (s Snapshot[E, T]) Find(id string) (E, bool) {
	for _, item := range s.Items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero E
	return zero, false
}

// Mutation transforms the collection when an operation resolves. Mutations
// run on the store's own goroutine and must not retain the slice they
// receive.
type Mutation[E Entity] func(items []E) []E

// ReplaceAll swaps the whole collection for a fresh page of results.
func ReplaceAll[E Entity](items []E) Mutation[E] {
	return func([]E) []E { return slices.Clone(items) }
}

// Append adds a newly created entity to the end of the collection.
func Append[E Entity](item E) Mutation[E] {
	return func(items []E) []E { return append(items, item) }
}

// Upsert replaces the entity with a matching ID in place, or appends it
// when the collection does not hold it yet.
func Upsert[E Entity](item E) Mutation[E] {
	return func(items []E) []E {
		for i, existing := range items {
			if existing.EntityID() == item.EntityID() {
				items[i] = item
				return items
			}
		}
		return append(items, item)
	}
}

// RemoveIDs drops every entity whose ID is in the given set.
func RemoveIDs[E Entity](ids ...string) Mutation[E] {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return func(items []E) []E {
		kept := items[:0]
		for _, item := range items {
			if _, gone := drop[item.EntityID()]; !gone {
				kept = append(kept, item)
			}
		}
		return kept
	}
}

// PatchIDs applies the patch function to every entity whose ID is in the
// given set, leaving the rest untouched.
func PatchIDs[E Entity](ids []string, patch func(E) E) Mutation[E] {
	match := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		match[id] = struct{}{}
	}
	return func(items []E) []E {
		for i, item := range items {
			if _, ok := match[item.EntityID()]; ok {
				items[i] = patch(item)
			}
		}
		return items
	}
}

// None leaves the collection as is; used by operations that only touch
// lifecycle flags.
func None[E Entity]() Mutation[E] {
	return func(items []E) []E { return items }
}

// Config configures a Store.
type Config[E Entity, T any] struct {
	// Name appears in log records, e.g. "categories".
	Name string
	// Derive rebuilds the derived view from the flat collection after every
	// mutation. Nil disables derivation.
	Derive func([]E) (T, error)
	Logger *slog.Logger
}

type state[E Entity, T any] struct {
	items      []E
	selectedID string
	filters    map[string]string
	pagination Pagination
	loading    Flags
	errors     Errors
	derived    T
	deriveErr  error
}

// Store holds one entity collection plus its operation lifecycle state.
// All access is serialized through a single goroutine, so callers on any
// number of goroutines observe consistent snapshots without locking.
type Store[E Entity, T any] struct {
	cfg  Config[E, T]
	cmds chan func(*state[E, T])
	done chan struct{}

	closeOnce sync.Once
}

// New creates a store and starts its run loop.
func New[E Entity, T any](cfg Config[E, T]) *Store[E, T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Store[E, T]{
		cfg:  cfg,
		cmds: make(chan func(*state[E, T]), 64),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store[E, T]) run() {
	st := &state[E, T]{filters: map[string]string{}}
	for {
		select {
		case cmd := <-s.cmds:
			cmd(st)
		case <-s.done:
			// Drain whatever was already queued so pending reads unblock.
			for {
				select {
				case cmd := <-s.cmds:
					cmd(st)
				default:
					return
				}
			}
		}
	}
}

// Close stops the run loop. Commands sent after Close are dropped.
func (s *Store[E, T]) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store[E, T]) do(cmd func(*state[E, T])) {
	select {
	case s.cmds <- cmd:
	case <-s.done:
	}
}

// Begin marks the operation's family as loading and clears that family's
// previous error. Other families are untouched.
func (s *Store[E, T]) Begin(op Op) {
	fam := FamilyOf(op)
	s.do(func(st *state[E, T]) {
		st.loading.set(fam, true)
		st.errors.set(fam, nil)
	})
}

// Resolve applies the mutation, clears the family's loading flag and
// rebuilds the derived view. A nil mutation only settles the lifecycle.
func (s *Store[E, T]) Resolve(op Op, m Mutation[E]) {
	fam := FamilyOf(op)
	s.do(func(st *state[E, T]) {
		st.loading.set(fam, false)
		st.errors.set(fam, nil)
		if m != nil {
			st.items = m(st.items)
			s.refreshSelection(st)
			s.rebuildDerived(st)
		}
	})
}

// ResolveList replaces the collection with a fetched page and records its
// pagination metadata.
func (s *Store[E, T]) ResolveList(op Op, items []E, p Pagination) {
	fam := FamilyOf(op)
	cloned := slices.Clone(items)
	s.do(func(st *state[E, T]) {
		st.loading.set(fam, false)
		st.errors.set(fam, nil)
		st.items = cloned
		st.pagination = p
		s.refreshSelection(st)
		s.rebuildDerived(st)
	})
}

// Fail clears the family's loading flag and records the error. The
// collection is left exactly as it was: a failed delete keeps the row.
func (s *Store[E, T]) Fail(op Op, err error) {
	fam := FamilyOf(op)
	s.do(func(st *state[E, T]) {
		st.loading.set(fam, false)
		st.errors.set(fam, err)
		s.cfg.Logger.Warn("operation failed",
			slog.String("store", s.cfg.Name),
			slog.String("op", op.String()),
			slog.String("family", fam.String()),
			slog.String("error", err.Error()),
		)
	})
}

// Select marks the entity with the given ID as selected. Selecting an ID
// not present in the collection still records it; the selection surfaces
// once the entity arrives (fetch-one upsert).
func (s *Store[E, T]) Select(id string) {
	s.do(func(st *state[E, T]) { st.selectedID = id })
}

// Deselect clears the selection.
func (s *Store[E, T]) Deselect() {
	s.do(func(st *state[E, T]) { st.selectedID = "" })
}

// SetFilters shallow-merges the given filters over the current set. A key
// mapped to an empty value is removed entirely.
func (s *Store[E, T]) SetFilters(filters map[string]string) {
	cloned := make(map[string]string, len(filters))
	for k, v := range filters {
		cloned[k] = v
	}
	s.do(func(st *state[E, T]) {
		for k, v := range cloned {
			if v == "" {
				delete(st.filters, k)
				continue
			}
			st.filters[k] = v
		}
	})
}

// ClearError resets one family's error slot without touching its flag.
func (s *Store[E, T]) ClearError(fam Family) {
	s.do(func(st *state[E, T]) { st.errors.set(fam, nil) })
}

// ClearErrors dismisses the stored errors of every family at once.
func (s *Store[E, T]) ClearErrors() {
	s.do(func(st *state[E, T]) { st.errors = Errors{} })
}

// Reset clears collection, derived view, selection, filters, pagination,
// and errors back to initial values. Loading flags survive: an in-flight
// operation keeps reporting pending until its own Resolve or Fail lands.
// Used on tenant switch so one merchant's catalog never bleeds into
// another's session.
func (s *Store[E, T]) Reset() {
	s.do(func(st *state[E, T]) {
		loading := st.loading
		*st = state[E, T]{filters: map[string]string{}}
		st.loading = loading
	})
}

// Snapshot returns a consistent copy of the store's state. It blocks until
// the run loop services the read; ctx bounds the wait.
func (s *Store[E, T]) Snapshot(ctx context.Context) (Snapshot[E, T], error) {
	reply := make(chan Snapshot[E, T], 1)
	s.do(func(st *state[E, T]) {
		snap := Snapshot[E, T]{
			Items:      slices.Clone(st.items),
			Filters:    make(map[string]string, len(st.filters)),
			Pagination: st.pagination,
			Loading:    st.loading,
			Errors:     st.errors,
			Derived:    st.derived,
			DeriveErr:  st.deriveErr,
		}
		for k, v := range st.filters {
			snap.Filters[k] = v
		}
		if st.selectedID != "" {
			for _, item := range st.items {
				if item.EntityID() == st.selectedID {
					selected := item
					snap.Selected = &selected
					break
				}
			}
		}
		reply <- snap
	})
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot[E, T]{}, ctx.Err()
	case <-s.done:
		// The run loop drains queued commands on shutdown, so the reply may
		// still land; prefer it over reporting cancellation.
		select {
		case snap := <-reply:
			return snap, nil
		default:
			return Snapshot[E, T]{}, context.Canceled
		}
	}
}

// refreshSelection drops the selection when the selected entity left the
// collection, e.g. after a fulfilled delete.
func (s *Store[E, T]) refreshSelection(st *state[E, T]) {
	if st.selectedID == "" {
		return
	}
	for _, item := range st.items {
		if item.EntityID() == st.selectedID {
			return
		}
	}
	st.selectedID = ""
}

func (s *Store[E, T]) rebuildDerived(st *state[E, T]) {
	if s.cfg.Derive == nil {
		return
	}
	derived, err := s.cfg.Derive(slices.Clone(st.items))
	if err != nil {
		var zero T
		st.derived = zero
		st.deriveErr = err
		s.cfg.Logger.Error("derived view rebuild failed",
			slog.String("store", s.cfg.Name),
			slog.String("error", err.Error()),
		)
		return
	}
	st.derived = derived
	st.deriveErr = nil
}
