package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu       sync.Mutex
	entries  []Entry
	saves    int
	failSave bool
}

func (m *memStorage) Save(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("quota exceeded")
	}
	m.entries = append([]Entry(nil), entries...)
	m.saves++
	return nil
}

func (m *memStorage) Load(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, *memStorage) {
	t.Helper()
	st := &memStorage{}
	s := NewStore(st, testLogger())
	s.Init(context.Background())
	return s, st
}

func product(id string, price float64, stock int) Product {
	return Product{
		ID:     id,
		Name:   "product " + id,
		Price:  decimal.NewFromFloat(price),
		Stock:  stock,
		Active: true,
	}
}

func TestAdd_MergesExistingEntry(t *testing.T) {
	s, _ := newTestStore(t)
	p1 := product("p1", 10, 5)

	require.NoError(t, s.Add(context.Background(), p1, 2))
	require.NoError(t, s.Add(context.Background(), p1, 2))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 4, snap[0].Quantity)
	assert.True(t, s.Total().Equal(decimal.NewFromInt(40)), "total = %s", s.Total())
	assert.Equal(t, 4, s.ItemCount())
}

func TestAdd_InsufficientStock_LeavesStoreUnchanged(t *testing.T) {
	s, st := newTestStore(t)

	err := s.Add(context.Background(), product("p1", 10, 5), 6)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, s.Snapshot())
	assert.Zero(t, st.saves)
}

func TestAdd_InsufficientStock_AgainstExistingEntry(t *testing.T) {
	s, _ := newTestStore(t)
	p1 := product("p1", 10, 5)

	require.NoError(t, s.Add(context.Background(), p1, 4))
	err := s.Add(context.Background(), p1, 2)
	require.ErrorIs(t, err, ErrInsufficientStock)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 4, snap[0].Quantity)
}

func TestAdd_RefreshesProductSnapshot(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))
	restocked := product("p1", 12, 9)
	require.NoError(t, s.Add(context.Background(), restocked, 4))

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 6, snap[0].Quantity)
	assert.Equal(t, 9, snap[0].Product.Stock)
	assert.True(t, snap[0].Product.Price.Equal(decimal.NewFromInt(12)))
}

func TestAdd_InvalidQuantity(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Add(context.Background(), product("p1", 10, 5), 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, s.Snapshot())
}

func TestSetQuantity_ZeroRemovesEntry(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))

	require.NoError(t, s.SetQuantity(context.Background(), "p1", 0))
	assert.Empty(t, s.Snapshot())
}

func TestSetQuantity_AboveStock(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))

	err := s.SetQuantity(context.Background(), "p1", 6)
	require.ErrorIs(t, err, ErrInsufficientStock)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].Quantity)
}

func TestSetQuantity_MissingProduct_SilentNoop(t *testing.T) {
	s, st := newTestStore(t)

	var notified int
	s.Subscribe(func([]Entry) { notified++ })
	notified = 0 // discard the attach-time snapshot

	require.NoError(t, s.SetQuantity(context.Background(), "ghost", 3))
	assert.Zero(t, notified)
	assert.Zero(t, st.saves)
}

func TestRemove_AbsentIsNotAnError(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Remove(context.Background(), "ghost"))
}

func TestClear(t *testing.T) {
	s, st := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))
	require.NoError(t, s.Add(context.Background(), product("p2", 3, 8), 1))

	require.NoError(t, s.Clear(context.Background()))

	assert.Empty(t, s.Snapshot())
	assert.True(t, s.Total().IsZero())
	assert.Empty(t, st.entries, "persisted slot must reflect the empty cart")
}

func TestMutationsBeforeInit_Rejected(t *testing.T) {
	s := NewStore(&memStorage{}, testLogger())

	assert.ErrorIs(t, s.Add(context.Background(), product("p1", 10, 5), 1), ErrNotReady)
	assert.ErrorIs(t, s.SetQuantity(context.Background(), "p1", 1), ErrNotReady)
	assert.ErrorIs(t, s.Remove(context.Background(), "p1"), ErrNotReady)
	assert.ErrorIs(t, s.Clear(context.Background()), ErrNotReady)
}

func TestInit_DropsInvalidRestoredEntries(t *testing.T) {
	st := &memStorage{entries: []Entry{
		{Product: product("p1", 10, 5), Quantity: 2},
		{Product: product("p2", 4, 5), Quantity: -1},
		{Product: product("p3", 4, 2), Quantity: 7}, // above snapshot stock
		{Product: product("p1", 10, 5), Quantity: 1},
	}}
	s := NewStore(st, testLogger())
	s.Init(context.Background())

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "p1", snap[0].Product.ID)
	assert.Equal(t, 2, snap[0].Quantity)
}

func TestSubscribe_ImmediateAndPerMutation(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))

	var got [][]Entry
	cancel := s.Subscribe(func(entries []Entry) {
		got = append(got, entries)
	})

	require.Len(t, got, 1, "attaching delivers the current snapshot")
	assert.Equal(t, 2, got[0][0].Quantity)

	require.NoError(t, s.SetQuantity(context.Background(), "p1", 3))
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1][0].Quantity)

	// failed mutation publishes nothing
	require.Error(t, s.SetQuantity(context.Background(), "p1", 99))
	assert.Len(t, got, 2)

	cancel()
	require.NoError(t, s.Clear(context.Background()))
	assert.Len(t, got, 2, "cancelled subscriber is not notified")
}

// A subscriber attaching while mutations are in flight must see its
// initial snapshot before any mutation notification, never after: the
// unit counts it observes can only grow under an add-only workload.
func TestSubscribe_InitialSnapshotNotInterleaved(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	p := product("p1", 1, 1_000_000)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			_ = s.Add(ctx, p, 1)
		}
	}()

	for i := 0; i < 50; i++ {
		var (
			mu  sync.Mutex
			got []int
		)
		cancel := s.Subscribe(func(entries []Entry) {
			units := 0
			for _, e := range entries {
				units += e.Quantity
			}
			mu.Lock()
			got = append(got, units)
			mu.Unlock()
		})
		cancel()

		mu.Lock()
		require.NotEmpty(t, got)
		for j := 1; j < len(got); j++ {
			require.GreaterOrEqual(t, got[j], got[j-1],
				"snapshot %d arrived out of order", j)
		}
		mu.Unlock()
	}
	<-done
}

func TestSubscribe_SnapshotIsACopy(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))

	snap := s.Snapshot()
	snap[0].Quantity = 99

	assert.Equal(t, 2, s.Snapshot()[0].Quantity)
}

func TestSaveFailure_DoesNotAffectState(t *testing.T) {
	s, st := newTestStore(t)
	st.failSave = true

	require.NoError(t, s.Add(context.Background(), product("p1", 10, 5), 2))
	assert.Equal(t, 2, s.ItemCount())
}

// TestRandomOperationSequences drives the store with random add, set and
// remove calls over a bounded product set and checks the cart invariants
// after every call: quantities at least one and within snapshot stock,
// unique product ids, total equal to the recomputed sum.
func TestRandomOperationSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	products := []Product{
		product("p1", 10, 5),
		product("p2", 2.5, 3),
		product("p3", 99, 1),
		product("p4", 0, 10),
	}

	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		p := products[rng.Intn(len(products))]
		switch rng.Intn(4) {
		case 0:
			_ = s.Add(ctx, p, rng.Intn(4))
		case 1:
			_ = s.SetQuantity(ctx, p.ID, rng.Intn(8)-1)
		case 2:
			_ = s.Remove(ctx, p.ID)
		case 3:
			_ = s.Add(ctx, p, 1)
		}

		seen := map[string]bool{}
		want := decimal.Zero
		for _, e := range s.Snapshot() {
			require.GreaterOrEqual(t, e.Quantity, 1, "I1 after op %d", i)
			require.LessOrEqual(t, e.Quantity, e.Product.Stock, "I2 after op %d", i)
			require.False(t, seen[e.Product.ID], "I3 after op %d", i)
			seen[e.Product.ID] = true
			want = want.Add(e.Subtotal())
		}
		require.True(t, s.Total().Equal(want), "I4 after op %d", i)
	}
}
