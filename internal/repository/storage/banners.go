package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
	"github.com/Yoonyonggeun/mostarle-kr/internal/entities"
)

const bannerColumns = `id, link_url, display_order, is_active, mobile_image_url, desktop_image_url, owner_id, created_at, updated_at`

func (s *dbStorage) InsertBanner(ctx context.Context, b *entities.Banner) (int64, error) {
	query := `
		INSERT INTO banner (link_url, display_order, is_active, mobile_image_url, desktop_image_url, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.dbpool.QueryRow(ctx, query,
		b.LinkURL, b.DisplayOrder, b.IsActive, b.MobileImageURL, b.DesktopImageURL, b.OwnerID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert banner: %w", err)
	}
	return b.ID, nil
}

func (s *dbStorage) GetBanner(ctx context.Context, id int64) (entities.Banner, error) {
	var b entities.Banner
	query := `SELECT ` + bannerColumns + ` FROM banner WHERE id = $1`
	err := s.dbpool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.LinkURL, &b.DisplayOrder, &b.IsActive,
		&b.MobileImageURL, &b.DesktopImageURL, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, apperr.NotFound("banner")
	}
	if err != nil {
		return b, fmt.Errorf("failed to read banner: %w", err)
	}
	return b, nil
}

func (s *dbStorage) UpdateBanner(ctx context.Context, b *entities.Banner) error {
	query := `
		UPDATE banner
		SET link_url = $2, display_order = $3, is_active = $4,
		    mobile_image_url = $5, desktop_image_url = $6, updated_at = now()
		WHERE id = $1`

	tag, err := s.dbpool.Exec(ctx, query,
		b.ID, b.LinkURL, b.DisplayOrder, b.IsActive, b.MobileImageURL, b.DesktopImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update banner %d: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("banner")
	}
	return nil
}

func (s *dbStorage) DeleteBanner(ctx context.Context, id int64) error {
	tag, err := s.dbpool.Exec(ctx, `DELETE FROM banner WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete banner %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("banner")
	}
	return nil
}

func (s *dbStorage) ListBanners(ctx context.Context, activeOnly bool) ([]entities.Banner, error) {
	query := `SELECT ` + bannerColumns + ` FROM banner`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY display_order`

	rows, err := s.dbpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer rows.Close()

	var banners []entities.Banner
	for rows.Next() {
		var b entities.Banner
		if err := rows.Scan(
			&b.ID, &b.LinkURL, &b.DisplayOrder, &b.IsActive,
			&b.MobileImageURL, &b.DesktopImageURL, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan banner: %w", err)
		}
		banners = append(banners, b)
	}
	return banners, rows.Err()
}

// NextDisplayOrder yields max+1 across all banners, 0 for the first one.
func (s *dbStorage) NextDisplayOrder(ctx context.Context) (int, error) {
	var next int
	query := `SELECT COALESCE(MAX(display_order), -1) + 1 FROM banner`
	if err := s.dbpool.QueryRow(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute banner order: %w", err)
	}
	return next, nil
}
