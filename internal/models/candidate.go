package models

import "time"

// Candidate is an applicant managed through the recruitment pipeline.
type Candidate struct {
	ID         string    `json:"_id,omitempty"`
	FullName   string    `json:"fullName" validate:"required"`
	Email      string    `json:"email" validate:"omitempty,email"`
	Phone      string    `json:"phone"`
	PassportNo string    `json:"passportNo"`
	Country    string    `json:"country"`
	Course     string    `json:"course,omitempty"`
	Status     string    `json:"status"`
	Photo      string    `json:"photo,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}
