package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

// Store is the sole owner of cart state. Every mutation validates against
// the product snapshot's stock, then synchronously notifies subscribers
// with a fresh copy and writes the state through to Storage. Each public
// operation is atomic: an observer never sees a half-applied mutation.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	ready   bool
	subs    map[int]func([]Entry)
	nextSub int

	storage Storage
	log     *slog.Logger
}

func NewStore(storage Storage, log *slog.Logger) *Store {
	return &Store{
		storage: storage,
		subs:    make(map[int]func([]Entry)),
		log:     log,
	}
}

// Init seeds the store from Storage. Mutations issued before Init are
// rejected with ErrNotReady. A failed or corrupt load degrades to an
// empty cart: persistence is a convenience, not a correctness source.
// Entries that fail validation are dropped one by one; a single bad
// entry never blocks the rest of the cart from restoring.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return
	}
	loaded, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn("cart restore failed, starting empty", "err", err)
		loaded = nil
	}
	for _, e := range loaded {
		if err := e.Validate(); err != nil {
			s.log.Warn("dropping restored cart entry", "product_id", e.Product.ID, "err", err)
			continue
		}
		if s.indexOf(e.Product.ID) >= 0 {
			s.log.Warn("dropping duplicate restored cart entry", "product_id", e.Product.ID)
			continue
		}
		s.entries = append(s.entries, e)
	}
	s.ready = true
}

// Add puts qty units of product into the cart. When an entry for the
// product already exists its quantity is incremented and its snapshot
// refreshed to the supplied product; otherwise a new entry is appended,
// preserving insertion order.
func (s *Store) Add(ctx context.Context, p Product, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}
	if i := s.indexOf(p.ID); i >= 0 {
		if s.entries[i].Quantity+qty > p.Stock {
			return fmt.Errorf("%w: only %d more of %q can be added",
				ErrInsufficientStock, p.Stock-s.entries[i].Quantity, p.ID)
		}
		s.entries[i].Product = p
		s.entries[i].Quantity += qty
	} else {
		if qty > p.Stock {
			return fmt.Errorf("%w: %d of %q available", ErrInsufficientStock, p.Stock, p.ID)
		}
		s.entries = append(s.entries, Entry{Product: p, Quantity: qty})
	}
	s.commit(ctx)
	return nil
}

// SetQuantity sets an entry's quantity exactly. A quantity at or below
// zero removes the entry. An unknown productID is a silent no-op: the
// call is valid, nothing is published or persisted.
func (s *Store) SetQuantity(ctx context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}
	i := s.indexOf(productID)
	if i < 0 {
		return nil
	}
	if qty <= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		s.commit(ctx)
		return nil
	}
	if qty > s.entries[i].Product.Stock {
		return fmt.Errorf("%w: %d of %q available",
			ErrInsufficientStock, s.entries[i].Product.Stock, productID)
	}
	s.entries[i].Quantity = qty
	s.commit(ctx)
	return nil
}

// Remove drops the entry for productID. Absence is not an error.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}
	if i := s.indexOf(productID); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
	s.commit(ctx)
	return nil
}

// Clear empties the cart unconditionally. Called after a successful
// checkout.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNotReady
	}
	s.entries = nil
	s.commit(ctx)
	return nil
}

// Snapshot returns a copy of the current entries in insertion order.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Total is the sum of price times quantity over all entries, recomputed
// on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.entries {
		total = total.Add(e.Subtotal())
	}
	return total
}

// ItemCount is the sum of quantities across entries.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		n += e.Quantity
	}
	return n
}

// Subscribe attaches fn to the store. It is invoked immediately with the
// current snapshot, then once after every successful mutation. Snapshots
// are copies and safe to retain; fn must not call back into the store.
// The returned func detaches the subscriber.
func (s *Store) Subscribe(fn func([]Entry)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	// deliver the initial snapshot under the lock so a concurrent
	// mutation cannot notify this subscriber first
	fn(s.snapshot())
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// commit publishes the new state and writes it through. Callers hold mu.
// A storage failure is logged and swallowed: losing durability is an
// acceptable degradation, corrupting the in-memory cart is not.
func (s *Store) commit(ctx context.Context) {
	snap := s.snapshot()
	for _, fn := range s.subs {
		fn(snap)
	}
	if err := s.storage.Save(ctx, snap); err != nil {
		s.log.Warn("cart persist failed", "err", err)
	}
}

func (s *Store) snapshot() []Entry {
	snap := make([]Entry, len(s.entries))
	copy(snap, s.entries)
	return snap
}

func (s *Store) indexOf(productID string) int {
	for i, e := range s.entries {
		if e.Product.ID == productID {
			return i
		}
	}
	return -1
}
