package models

import "time"

// Bundle is a service package sold to candidates. The upstream API calls the
// resource "package"; the Go type avoids the near-keyword name while the JSON
// contract stays unchanged.
type Bundle struct {
	ID          string    `json:"_id,omitempty"`
	Name        string    `json:"name" validate:"required"`
	Price       float64   `json:"price" validate:"gte=0"`
	Currency    string    `json:"currency"`
	Features    []string  `json:"features,omitempty"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}
