// Package cart holds the shopping cart state container. State changes go through
// Dispatch and every change is written through the injected Persistence port.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

type ActionType string

const (
	ActionAddItem    ActionType = "ADD_ITEM"
	ActionRemoveItem ActionType = "REMOVE_ITEM"
	ActionClearCart  ActionType = "CLEAR_CART"
)

// Action is a cart mutation. Item is read by ADD_ITEM, Index by REMOVE_ITEM.
type Action struct {
	Type  ActionType
	Item  models.CartItem
	Index int
}

func AddItem(item models.CartItem) Action { return Action{Type: ActionAddItem, Item: item} }
func RemoveItem(index int) Action         { return Action{Type: ActionRemoveItem, Index: index} }
func ClearCart() Action                   { return Action{Type: ActionClearCart} }

// State is the serialized cart, {"items":[...]}
type State struct {
	Items []models.CartItem `json:"items"`
}

// Reduce applies an action to a state without mutating it.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ActionAddItem:
		items := make([]models.CartItem, 0, len(state.Items)+1)
		items = append(items, state.Items...)
		return State{Items: append(items, action.Item)}
	case ActionRemoveItem:
		items := make([]models.CartItem, 0, len(state.Items))
		for i, item := range state.Items {
			if i != action.Index {
				items = append(items, item)
			}
		}
		return State{Items: items}
	case ActionClearCart:
		return State{Items: []models.CartItem{}}
	default:
		return state
	}
}

// Persistence reads and writes the serialized cart state.
// Load returns nil data when nothing has been stored yet.
type Persistence interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type Store struct {
	mu          sync.Mutex
	state       State
	persistence Persistence
}

// NewStore creates an empty cart backed by p
func NewStore(p Persistence) *Store {
	return &Store{
		state:       State{Items: []models.CartItem{}},
		persistence: p,
	}
}

// Hydrate replays ADD_ITEM for every stored item and saves the result
func (s *Store) Hydrate(ctx context.Context) error {
	data, err := s.persistence.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var saved State
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("decode stored cart: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	for _, item := range saved.Items {
		state = Reduce(state, AddItem(item))
	}
	return s.commit(ctx, state)
}

// Dispatch applies an action and persists the new state
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, Reduce(s.state, action))
}

func (s *Store) commit(ctx context.Context, next State) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.persistence.Save(ctx, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.state = next
	return nil
}

// Items returns a copy of the items in insertion order
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartItem, len(s.state.Items))
	copy(items, s.state.Items)
	return items
}

// Len returns the number of items
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Items)
}

// Total sums item prices. Tax and shipping are not part of the cart.
func (s *Store) Total() (decimal.Decimal, error) {
	return Total(s.Items())
}

// Total sums the prices of items
func Total(items []models.CartItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		price, err := ParsePrice(item.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("item %d (%s): %w", item.ProductID, item.Size, err)
		}
		total = total.Add(price)
	}
	return total, nil
}

// MinorUnits converts an amount to integer minor currency units (pence/cents)
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ParsePrice reads a currency-prefixed price such as "£20.00"
func ParsePrice(price string) (decimal.Decimal, error) {
	raw := strings.TrimLeftFunc(strings.TrimSpace(price), func(r rune) bool {
		return !unicode.IsDigit(r) && r != '-' && r != '.'
	})
	if raw == "" {
		return decimal.Zero, fmt.Errorf("invalid price %q", price)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", price, err)
	}
	return d, nil
}

// MemoryPersistence keeps the serialized state in memory
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
}

func (m *MemoryPersistence) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryPersistence) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}
