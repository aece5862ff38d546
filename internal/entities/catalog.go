package entities

import "time"

type CatalogItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Price       float64   `json:"price"`
	Difficulty  *int16    `json:"difficulty,omitempty"` // 1..5
	WorkingTime int32     `json:"working_time"`         // minutes
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Depth       *float64  `json:"depth,omitempty"`
	SoldOut     bool      `json:"sold_out"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Images  []CatalogItemImage  `json:"images,omitempty"`
	Details []CatalogItemDetail `json:"details,omitempty"`
}

// Order is a dense 0-based permutation within one parent item.
type CatalogItemImage struct {
	ID       int64  `json:"id"`
	ItemID   int64  `json:"item_id"`
	ImageURL string `json:"image_url"`
	Order    int    `json:"order"`
}

type CatalogItemDetail struct {
	ID          int64   `json:"id"`
	ItemID      int64   `json:"item_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
	Order       int     `json:"order"`
}
