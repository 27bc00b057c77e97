package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"explorafit-server/internal/domain"
	"explorafit-server/internal/repository"
)

const createRoutesTable = `
CREATE TABLE IF NOT EXISTS routes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	landmarks TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	distance_km REAL NOT NULL DEFAULT 0,
	polyline TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_routes_owner_id ON routes(owner_id);
`

type RouteRepository struct {
	db *sql.DB
}

func NewRouteRepository(db *sql.DB) repository.RouteRepository {
	return &RouteRepository{db: db}
}

func (r *RouteRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRoutesTable); err != nil {
		return fmt.Errorf("create routes table: %w", err)
	}
	return nil
}

func (r *RouteRepository) Insert(ctx context.Context, route *domain.Route) (int64, error) {
	route.CreatedAt = time.Now().UTC()

	polyline, err := json.Marshal(route.Polyline)
	if err != nil {
		return 0, fmt.Errorf("encode polyline: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO routes (owner_id, name, difficulty, description, landmarks, city, distance_km, polyline, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		route.OwnerID,
		route.Name,
		string(route.Difficulty),
		route.Description,
		route.Landmarks,
		route.City,
		route.DistanceKm,
		string(polyline),
		route.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("route last insert id: %w", err)
	}
	route.ID = id
	return id, nil
}

func (r *RouteRepository) Get(ctx context.Context, id int64) (*domain.Route, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, name, difficulty, description, landmarks, city, distance_km, polyline, created_at
FROM routes
WHERE id = ?`,
		id,
	)
	return scanRoute(row)
}

func (r *RouteRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Route, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, name, difficulty, description, landmarks, city, distance_km, polyline, created_at
FROM routes
WHERE owner_id = ?
ORDER BY created_at DESC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var routes []domain.Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, *route)
	}

	return routes, rows.Err()
}

func scanRoute(scanner interface {
	Scan(dest ...any) error
}) (*domain.Route, error) {
	var (
		route      domain.Route
		difficulty string
		polyline   string
	)

	if err := scanner.Scan(
		&route.ID,
		&route.OwnerID,
		&route.Name,
		&difficulty,
		&route.Description,
		&route.Landmarks,
		&route.City,
		&route.DistanceKm,
		&polyline,
		&route.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRouteNotFound
		}
		return nil, fmt.Errorf("scan route: %w", err)
	}

	route.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal([]byte(polyline), &route.Polyline); err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}

	return &route, nil
}
