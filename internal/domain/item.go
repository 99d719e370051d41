package domain

import (
	"time"
)

// Item is a generic user-owned resource managed by the item CRUD service.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemFilter narrows item listings; zero-value fields are ignored.
type ItemFilter struct {
	Name    string
	OwnerID string
}
