// Package model defines data structures used throughout the application.
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/guregu/null.v3"
)

// Validation constants.
const (
	MaxNameLength = 255
)

// Item is a product record managed by the item service.
// ID is zero until the item has been saved; the store never assigns zero.
type Item struct {
	ID       int64    `json:"id"`
	ItemName string   `json:"itemName"`
	Price    null.Int `json:"price"`
	Quantity null.Int `json:"quantity"`
}

// NewItem builds an unsaved item with both numeric fields set.
func NewItem(name string, price, quantity int64) *Item {
	return &Item{
		ItemName: name,
		Price:    null.IntFrom(price),
		Quantity: null.IntFrom(quantity),
	}
}

// IsNew reports whether the item has not been assigned an ID yet.
func (i *Item) IsNew() bool {
	return i.ID == 0
}

// Validate checks if the Item has valid field values.
// The returned error is a validation.Errors keyed by the JSON field name.
func (i *Item) Validate() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.ItemName,
			validation.Required,
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&i.Price, validation.Min(0)),
		validation.Field(&i.Quantity, validation.Min(0)),
	)
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ItemEvent is pushed to event feed subscribers whenever an item changes.
type ItemEvent struct {
	Type      string    `json:"type"`
	Item      *Item     `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Item event types.
const (
	EventTypeItemCreated = "item_created"
	EventTypeItemUpdated = "item_updated"
)

// NewItemEvent creates an event of the given type carrying a copy of item.
func NewItemEvent(eventType string, item Item) ItemEvent {
	return ItemEvent{
		Type:      eventType,
		Item:      &item,
		Timestamp: time.Now().UTC(),
	}
}
