package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"strings"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// Migrations holds the schema of the saved views store.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the files.
const MigrationsDir = "migrations"

// ErrViewNotFound represents a missing or foreign view row.
var ErrViewNotFound = errors.New("map view not found")

// MapViewRepository persists saved map views.
type MapViewRepository struct {
	db *sql.DB
}

// NewMapViewRepository returns repository instance.
func NewMapViewRepository(db *sql.DB) *MapViewRepository {
	return &MapViewRepository{db: db}
}

// Save inserts the view or replaces the user's view with the same name.
func (r *MapViewRepository) Save(ctx context.Context, view *models.MapView) error {
	view.Name = strings.TrimSpace(view.Name)
	filter, err := json.Marshal(view.Filter)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO map_views (user_id, name, lat, lng, zoom, metric, filter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (user_id, name) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			zoom = EXCLUDED.zoom,
			metric = EXCLUDED.metric,
			filter = EXCLUDED.filter,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		view.UserID,
		view.Name,
		view.Lat,
		view.Lng,
		view.Zoom,
		view.Metric,
		filter,
	).Scan(&view.ID, &view.CreatedAt, &view.UpdatedAt)
}

// ListByUser returns the user's views, most recently updated first.
func (r *MapViewRepository) ListByUser(ctx context.Context, userID int64) ([]models.MapView, error) {
	const query = `
		SELECT id, user_id, name, lat, lng, zoom, metric, filter, created_at, updated_at
		FROM map_views
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]models.MapView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, rows.Err()
}

// Get returns one of the user's views.
func (r *MapViewRepository) Get(ctx context.Context, userID, id int64) (*models.MapView, error) {
	const query = `
		SELECT id, user_id, name, lat, lng, zoom, metric, filter, created_at, updated_at
		FROM map_views
		WHERE id = $1 AND user_id = $2
	`
	view, err := scanView(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrViewNotFound
	}
	return view, err
}

// Delete removes one of the user's views.
func (r *MapViewRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM map_views WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrViewNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (*models.MapView, error) {
	var (
		view   models.MapView
		filter []byte
	)
	if err := row.Scan(
		&view.ID,
		&view.UserID,
		&view.Name,
		&view.Lat,
		&view.Lng,
		&view.Zoom,
		&view.Metric,
		&filter,
		&view.CreatedAt,
		&view.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(filter) > 0 {
		// a broken filter column only loses the filter, not the view
		_ = json.Unmarshal(filter, &view.Filter)
	}
	return &view, nil
}
