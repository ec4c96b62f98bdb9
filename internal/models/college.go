package models

import "time"

// College is a partner institution abroad.
type College struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name" validate:"required"`
	Country   string    `json:"country" validate:"required"`
	City      string    `json:"city"`
	Website   string    `json:"website"`
	Ranking   int       `json:"ranking,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
