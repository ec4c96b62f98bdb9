package models

import "time"

// GalleryItem is an image shown in the public gallery.
type GalleryItem struct {
	ID        string    `json:"_id,omitempty"`
	Title     string    `json:"title"`
	Image     string    `json:"image" validate:"required"`
	Caption   string    `json:"caption,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
