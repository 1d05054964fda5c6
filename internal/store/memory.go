package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[int64]model.Item
	order    []int64
	sequence int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]model.Item),
	}
}

// Save adds an item to the store and returns the stored copy.
// Items without an ID receive the next value of a sequence starting at 1.
func (s *MemoryStore) Save(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("save item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("save item: %w", ErrNilItem)
	}

	if item.ID < 0 {
		return nil, fmt.Errorf("save item: %w", ErrInvalidID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *item
	if saved.IsNew() {
		s.sequence++
		saved.ID = s.sequence
	} else if saved.ID > s.sequence {
		// Keep the sequence ahead of explicitly assigned IDs.
		s.sequence = saved.ID
	}

	if _, exists := s.items[saved.ID]; !exists {
		s.order = append(s.order, saved.ID)
	}
	s.items[saved.ID] = saved

	return &saved, nil
}

// FindByID retrieves an item by its ID.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find item: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &item, nil
}

// FindAll returns all items from the store in insertion order.
func (s *MemoryStore) FindAll(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find all items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id])
	}

	return items, nil
}

// Update replaces the fields of an existing item, keeping its ID.
func (s *MemoryStore) Update(ctx context.Context, id int64, data *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if id <= 0 {
		return nil, ErrInvalidID
	}

	if data == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return nil, ErrNotFound
	}

	updated := model.Item{
		ID:       id,
		ItemName: data.ItemName,
		Price:    data.Price,
		Quantity: data.Quantity,
	}
	s.items[id] = updated

	return &updated, nil
}
