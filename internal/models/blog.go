package models

import "time"

// Blog is an editorial post shown on the public site.
type Blog struct {
	ID        string    `json:"_id,omitempty"`
	Title     string    `json:"title" validate:"required"`
	Slug      string    `json:"slug"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
