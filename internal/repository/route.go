package repository

import (
	"context"

	"explorafit-server/internal/domain"
)

// RouteRepository exposes persistence operations for Route records.
// Routes are immutable once inserted; there is no update or delete.
type RouteRepository interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, route *domain.Route) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Route, error)
	// ListByOwner returns the owner's routes newest first, ties broken by
	// insertion order.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Route, error)
}
