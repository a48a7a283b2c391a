package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id int64, size, price string) models.CartItem {
	return models.CartItem{ProductID: id, VariantID: id*100 + 1, Name: "Tee", Price: price, Image: "/img.png", Size: size}
}

func TestReduceRemovePreservesOrder(t *testing.T) {
	state := State{}
	for i, size := range []string{"S", "M", "L", "XL"} {
		state = Reduce(state, AddItem(item(int64(i+1), size, "£10.00")))
	}

	next := Reduce(state, RemoveItem(1))

	require.Len(t, next.Items, 3)
	assert.Equal(t, "S", next.Items[0].Size)
	assert.Equal(t, "L", next.Items[1].Size)
	assert.Equal(t, "XL", next.Items[2].Size)
	assert.Len(t, state.Items, 4, "reducer must not mutate its input")
}

func TestReduceRemoveOutOfRange(t *testing.T) {
	state := Reduce(State{}, AddItem(item(1, "M", "£10.00")))

	assert.Equal(t, state.Items, Reduce(state, RemoveItem(5)).Items)
	assert.Equal(t, state.Items, Reduce(state, RemoveItem(-1)).Items)
}

func TestReduceDuplicatesAreSeparateEntries(t *testing.T) {
	state := Reduce(State{}, AddItem(item(1, "M", "£10.00")))
	state = Reduce(state, AddItem(item(1, "M", "£10.00")))

	assert.Len(t, state.Items, 2)
}

func TestReduceClear(t *testing.T) {
	state := Reduce(State{}, AddItem(item(1, "M", "£10.00")))

	assert.Empty(t, Reduce(state, ClearCart()).Items)
	assert.Empty(t, Reduce(State{}, ClearCart()).Items)
}

func TestReduceUnknownAction(t *testing.T) {
	state := Reduce(State{}, AddItem(item(1, "M", "£10.00")))
	assert.Equal(t, state, Reduce(state, Action{Type: "BOGUS"}))
}

func TestStoreRehydrateRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := &MemoryPersistence{}

	first := NewStore(storage)
	require.NoError(t, first.Dispatch(ctx, AddItem(item(1, "S", "£20.00"))))
	require.NoError(t, first.Dispatch(ctx, AddItem(item(2, "M", "£15.50"))))
	require.NoError(t, first.Dispatch(ctx, AddItem(item(3, "L", "£9.99"))))
	require.NoError(t, first.Dispatch(ctx, RemoveItem(0)))

	reloaded := NewStore(storage)
	require.NoError(t, reloaded.Hydrate(ctx))

	assert.Equal(t, first.Items(), reloaded.Items())
}

func TestStoreHydrateEmpty(t *testing.T) {
	s := NewStore(&MemoryPersistence{})
	require.NoError(t, s.Hydrate(context.Background()))
	assert.Equal(t, 0, s.Len())
}

type failingPersistence struct{ err error }

func (f failingPersistence) Load(context.Context) ([]byte, error) { return nil, f.err }
func (f failingPersistence) Save(context.Context, []byte) error   { return f.err }

func TestStoreSaveFailureKeepsState(t *testing.T) {
	s := NewStore(failingPersistence{err: errors.New("quota exceeded")})

	err := s.Dispatch(context.Background(), AddItem(item(1, "M", "£10.00")))
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, 0, s.Len())
}

func TestTotal(t *testing.T) {
	ctx := context.Background()
	s := NewStore(&MemoryPersistence{})
	require.NoError(t, s.Dispatch(ctx, AddItem(item(1, "S", "£20.00"))))
	require.NoError(t, s.Dispatch(ctx, AddItem(item(2, "M", "£15.50"))))

	total, err := s.Total()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("35.50").Equal(total), total.String())
	assert.Equal(t, int64(3550), MinorUnits(total))
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice("£20.00")
	require.NoError(t, err)
	assert.Equal(t, "20", p.String())

	p, err = ParsePrice("12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", p.String())

	_, err = ParsePrice("£")
	assert.Error(t, err)

	_, err = ParsePrice("£abc")
	assert.Error(t, err)
}
