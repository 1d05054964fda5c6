// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrInvalidID = errors.New("invalid item ID")
	ErrNilItem   = errors.New("item cannot be nil")
)

// Store defines the interface for item storage operations.
type Store interface {
	// Save stores the item, assigning the next sequential ID when it has none.
	Save(ctx context.Context, item *model.Item) (*model.Item, error)

	// FindByID retrieves an item by its ID.
	FindByID(ctx context.Context, id int64) (*model.Item, error)

	// FindAll returns all items in insertion order.
	FindAll(ctx context.Context) ([]model.Item, error)

	// Update replaces the name, price and quantity of an existing item.
	Update(ctx context.Context, id int64, data *model.Item) (*model.Item, error)
}
