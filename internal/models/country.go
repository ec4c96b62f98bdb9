package models

import "time"

// Country is a destination country managed by the admin console.
type Country struct {
	ID        string    `json:"_id,omitempty"`
	Name      string    `json:"name" validate:"required"`
	Code      string    `json:"code" validate:"required"`
	ISOCode   string    `json:"isoCode"`
	DialCode  string    `json:"dialCode"`
	Currency  string    `json:"currency"`
	Flag      string    `json:"flag,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
