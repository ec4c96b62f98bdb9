package models

import "time"

// Coupon is a discount code applied to service packages.
type Coupon struct {
	ID          string    `json:"_id,omitempty"`
	Code        string    `json:"code" validate:"required"`
	DiscountPct float64   `json:"discountPct" validate:"gte=0,lte=100"`
	MaxUses     int       `json:"maxUses"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}
