package models

import "time"

// Intake is an admission window for a destination country or college.
type Intake struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name" validate:"required"`
	Month     string    `json:"month"`
	Year      int       `json:"year"`
	Country   string    `json:"country,omitempty"`
	Open      bool      `json:"open"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
