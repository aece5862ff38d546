package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Yoonyonggeun/mostarle-kr/internal/reconcile"
)

// ImageCollection adapts catalog_item_image rows to the reconciliation
// engine's collection port.
type ImageCollection struct {
	s *dbStorage
}

func (s *dbStorage) Images() *ImageCollection { return &ImageCollection{s: s} }

func (c *ImageCollection) List(ctx context.Context, parentID int64) ([]reconcile.Child, error) {
	imgs, err := c.s.ListImages(ctx, parentID)
	if err != nil {
		return nil, err
	}
	children := make([]reconcile.Child, len(imgs))
	for i, img := range imgs {
		children[i] = reconcile.Child{ID: img.ID, URL: img.ImageURL, Order: img.Order}
	}
	return children, nil
}

func (c *ImageCollection) Reorder(ctx context.Context, childID int64, order int) error {
	query := `UPDATE catalog_item_image SET order_index = $2 WHERE id = $1`
	if _, err := c.s.dbpool.Exec(ctx, query, childID, order); err != nil {
		return fmt.Errorf("failed to reorder image %d: %w", childID, err)
	}
	return nil
}

func (c *ImageCollection) Insert(ctx context.Context, parentID int64, p reconcile.NewPayload, url string, order int) (int64, error) {
	var id int64
	query := `INSERT INTO catalog_item_image (item_id, image_url, order_index) VALUES ($1, $2, $3) RETURNING id`
	if err := c.s.dbpool.QueryRow(ctx, query, parentID, url, order).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert image for item %d: %w", parentID, err)
	}
	return id, nil
}

func (c *ImageCollection) Delete(ctx context.Context, ids ...int64) error {
	query := `DELETE FROM catalog_item_image WHERE id = ANY($1)`
	if _, err := c.s.dbpool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	return nil
}

func (c *ImageCollection) DeleteAll(ctx context.Context, parentID int64) error {
	query := `DELETE FROM catalog_item_image WHERE item_id = $1`
	if _, err := c.s.dbpool.Exec(ctx, query, parentID); err != nil {
		return fmt.Errorf("failed to delete images of item %d: %w", parentID, err)
	}
	return nil
}

func (c *ImageCollection) ObjectKey(parentID int64, position int, filename string, now time.Time) string {
	return fmt.Sprintf("%d/%d-%s", parentID, now.UnixMilli(), filename)
}

// DetailCollection adapts catalog_item_detail rows. Details carry text next
// to the optional image.
type DetailCollection struct {
	s *dbStorage
}

func (s *dbStorage) Details() *DetailCollection { return &DetailCollection{s: s} }

func (c *DetailCollection) List(ctx context.Context, parentID int64) ([]reconcile.Child, error) {
	dets, err := c.s.ListDetails(ctx, parentID)
	if err != nil {
		return nil, err
	}
	children := make([]reconcile.Child, len(dets))
	for i, d := range dets {
		url := ""
		if d.ImageURL != nil {
			url = *d.ImageURL
		}
		children[i] = reconcile.Child{ID: d.ID, URL: url, Order: d.Order}
	}
	return children, nil
}

func (c *DetailCollection) Reorder(ctx context.Context, childID int64, order int) error {
	query := `UPDATE catalog_item_detail SET order_index = $2 WHERE id = $1`
	if _, err := c.s.dbpool.Exec(ctx, query, childID, order); err != nil {
		return fmt.Errorf("failed to reorder detail %d: %w", childID, err)
	}
	return nil
}

func (c *DetailCollection) Insert(ctx context.Context, parentID int64, p reconcile.NewPayload, url string, order int) (int64, error) {
	var imageURL *string
	if url != "" {
		imageURL = &url
	}

	var id int64
	query := `INSERT INTO catalog_item_detail (item_id, title, description, image_url, order_index) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := c.s.dbpool.QueryRow(ctx, query, parentID, p.Title, p.Description, imageURL, order).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert detail for item %d: %w", parentID, err)
	}
	return id, nil
}

func (c *DetailCollection) Delete(ctx context.Context, ids ...int64) error {
	query := `DELETE FROM catalog_item_detail WHERE id = ANY($1)`
	if _, err := c.s.dbpool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to delete details: %w", err)
	}
	return nil
}

func (c *DetailCollection) DeleteAll(ctx context.Context, parentID int64) error {
	query := `DELETE FROM catalog_item_detail WHERE item_id = $1`
	if _, err := c.s.dbpool.Exec(ctx, query, parentID); err != nil {
		return fmt.Errorf("failed to delete details of item %d: %w", parentID, err)
	}
	return nil
}

func (c *DetailCollection) ObjectKey(parentID int64, position int, filename string, now time.Time) string {
	return fmt.Sprintf("%d/details/%d/%d-%s", parentID, position, now.UnixMilli(), filename)
}
