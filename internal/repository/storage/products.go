package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

const itemColumns = `id, title, slug, price, difficulty, working_time, width, height, depth, sold_out, owner_id, created_at, updated_at`

func (s *dbStorage) InsertItem(ctx context.Context, it *entities.CatalogItem) (int64, error) {
	query := `
		INSERT INTO catalog_item (title, slug, price, difficulty, working_time, width, height, depth, sold_out, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := s.dbpool.QueryRow(ctx, query,
		it.Title, it.Slug, it.Price, it.Difficulty, it.WorkingTime,
		it.Width, it.Height, it.Depth, it.SoldOut, it.OwnerID,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert catalog item: %w", err)
	}
	return it.ID, nil
}

func (s *dbStorage) GetItem(ctx context.Context, id int64) (entities.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_item WHERE id = $1`
	return s.scanItem(s.dbpool.QueryRow(ctx, query, id))
}

func (s *dbStorage) GetItemBySlug(ctx context.Context, slug string) (entities.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_item WHERE slug = $1`
	return s.scanItem(s.dbpool.QueryRow(ctx, query, slug))
}

func (s *dbStorage) scanItem(row pgx.Row) (entities.CatalogItem, error) {
	var it entities.CatalogItem
	err := row.Scan(
		&it.ID, &it.Title, &it.Slug, &it.Price, &it.Difficulty, &it.WorkingTime,
		&it.Width, &it.Height, &it.Depth, &it.SoldOut, &it.OwnerID, &it.CreatedAt, &it.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return it, apperr.NotFound("product")
	}
	if err != nil {
		return it, fmt.Errorf("failed to read catalog item: %w", err)
	}
	return it, nil
}

// SlugExists reports whether another item already holds slug. excludeID
// keeps an item's own slug from colliding with itself on update.
func (s *dbStorage) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM catalog_item WHERE slug = $1 AND id <> $2)`
	if err := s.dbpool.QueryRow(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

func (s *dbStorage) UpdateItemScalars(ctx context.Context, it *entities.CatalogItem) error {
	query := `
		UPDATE catalog_item
		SET title = $2, slug = $3, price = $4, difficulty = $5, working_time = $6,
		    width = $7, height = $8, depth = $9, updated_at = now()
		WHERE id = $1`

	tag, err := s.dbpool.Exec(ctx, query,
		it.ID, it.Title, it.Slug, it.Price, it.Difficulty, it.WorkingTime,
		it.Width, it.Height, it.Depth,
	)
	if err != nil {
		return fmt.Errorf("failed to update catalog item %d: %w", it.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

// ToggleSoldOut flips the flag in one statement and returns the new value.
func (s *dbStorage) ToggleSoldOut(ctx context.Context, id int64) (bool, error) {
	var soldOut bool
	query := `UPDATE catalog_item SET sold_out = NOT sold_out, updated_at = now() WHERE id = $1 RETURNING sold_out`
	err := s.dbpool.QueryRow(ctx, query, id).Scan(&soldOut)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, apperr.NotFound("product")
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle sold_out for item %d: %w", id, err)
	}
	return soldOut, nil
}

// DeleteItem removes the parent row; image and detail rows go with it via
// the relational cascade. Asset cleanup is the caller's job.
func (s *dbStorage) DeleteItem(ctx context.Context, id int64) error {
	tag, err := s.dbpool.Exec(ctx, `DELETE FROM catalog_item WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog item %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("product")
	}
	return nil
}

func (s *dbStorage) ListItems(ctx context.Context) ([]entities.CatalogItem, error) {
	query := `SELECT ` + itemColumns + ` FROM catalog_item ORDER BY created_at DESC`
	rows, err := s.dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	var items []entities.CatalogItem
	for rows.Next() {
		var it entities.CatalogItem
		if err := rows.Scan(
			&it.ID, &it.Title, &it.Slug, &it.Price, &it.Difficulty, &it.WorkingTime,
			&it.Width, &it.Height, &it.Depth, &it.SoldOut, &it.OwnerID, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}

	if err := s.attachImages(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *dbStorage) attachImages(ctx context.Context, items []entities.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, len(items))
	index := make(map[int64]*entities.CatalogItem, len(items))
	for i := range items {
		ids[i] = items[i].ID
		index[items[i].ID] = &items[i]
	}

	query := `
		SELECT id, item_id, image_url, order_index
		FROM catalog_item_image
		WHERE item_id = ANY($1)
		ORDER BY item_id, order_index`

	rows, err := s.dbpool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to list item images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img entities.CatalogItemImage
		if err := rows.Scan(&img.ID, &img.ItemID, &img.ImageURL, &img.Order); err != nil {
			return fmt.Errorf("failed to scan item image: %w", err)
		}
		if it, ok := index[img.ItemID]; ok {
			it.Images = append(it.Images, img)
		}
	}
	return rows.Err()
}

func (s *dbStorage) ListImages(ctx context.Context, itemID int64) ([]entities.CatalogItemImage, error) {
	query := `SELECT id, item_id, image_url, order_index FROM catalog_item_image WHERE item_id = $1 ORDER BY order_index`
	rows, err := s.dbpool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var imgs []entities.CatalogItemImage
	for rows.Next() {
		var img entities.CatalogItemImage
		if err := rows.Scan(&img.ID, &img.ItemID, &img.ImageURL, &img.Order); err != nil {
			return nil, fmt.Errorf("failed to scan item image: %w", err)
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

func (s *dbStorage) ListDetails(ctx context.Context, itemID int64) ([]entities.CatalogItemDetail, error) {
	query := `SELECT id, item_id, title, description, image_url, order_index FROM catalog_item_detail WHERE item_id = $1 ORDER BY order_index`
	rows, err := s.dbpool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list details for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var dets []entities.CatalogItemDetail
	for rows.Next() {
		var d entities.CatalogItemDetail
		if err := rows.Scan(&d.ID, &d.ItemID, &d.Title, &d.Description, &d.ImageURL, &d.Order); err != nil {
			return nil, fmt.Errorf("failed to scan item detail: %w", err)
		}
		dets = append(dets, d)
	}
	return dets, rows.Err()
}
