package models

import "time"

// Certificate is a language or skill certificate recognised in applications.
type Certificate struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name" validate:"required"`
	Issuer    string    `json:"issuer"`
	MinScore  float64   `json:"minScore,omitempty"`
	MaxScore  float64   `json:"maxScore,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
