package models

import "time"

// Course is a study program offered through partner colleges.
type Course struct {
	ID             string    `json:"_id,omitempty"`
	Name           string    `json:"name" validate:"required"`
	College        string    `json:"college"`
	Country        string    `json:"country"`
	Level          string    `json:"level"`
	DurationMonths int       `json:"durationMonths"`
	TuitionFee     float64   `json:"tuitionFee"`
	Description    string    `json:"description"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt,omitempty"`
}
