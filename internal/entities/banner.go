package entities

import "time"

type Banner struct {
	ID              int64     `json:"id"`
	LinkURL         *string   `json:"link_url,omitempty"`
	DisplayOrder    int       `json:"display_order"`
	IsActive        bool      `json:"is_active"`
	MobileImageURL  string    `json:"mobile_image_url"`
	DesktopImageURL string    `json:"desktop_image_url"`
	OwnerID         string    `json:"owner_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
