package models

import "time"

// Job is an overseas job posting.
type Job struct {
	ID          string    `json:"_id,omitempty"`
	Title       string    `json:"title" validate:"required"`
	Company     string    `json:"company"`
	Country     string    `json:"country" validate:"required"`
	Location    string    `json:"location"`
	SalaryRange string    `json:"salaryRange"`
	Vacancies   int       `json:"vacancies"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}
