package service

import (
	"context"
	"fmt"
	"strings"

	"explorafit-server/internal/domain"
	"explorafit-server/internal/geo"
	"explorafit-server/internal/repository"
)

// NewRouteInput carries caller-supplied route metadata. Any distance hint is
// ignored; the server derives the distance from the polyline.
type NewRouteInput struct {
	Name        string
	Difficulty  domain.Difficulty
	Description string
	Landmarks   string
	City        string
	Polyline    []domain.LatLng
}

// RouteService coordinates the metered create-route action and route reads.
type RouteService interface {
	// CreateRoute debits one credit from a non-premium owner and inserts the
	// route, all-or-nothing. It returns the route together with the owner's
	// post-debit state.
	CreateRoute(ctx context.Context, ownerID int64, input NewRouteInput) (*domain.Route, *domain.User, error)
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Route, error)
}

type routeService struct {
	users  repository.UserRepository
	routes repository.RouteRepository
}

func NewRouteService(users repository.UserRepository, routes repository.RouteRepository) RouteService {
	return &routeService{
		users:  users,
		routes: routes,
	}
}

func (s *routeService) CreateRoute(ctx context.Context, ownerID int64, input NewRouteInput) (*domain.Route, *domain.User, error) {
	// validation happens before any storage mutation
	if err := validateRouteInput(input); err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	debited := false
	if !user.IsPremium {
		if err := s.users.DebitCredit(ctx, ownerID); err != nil {
			return nil, nil, err
		}
		debited = true
	}

	route := &domain.Route{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(input.Name),
		Difficulty:  input.Difficulty,
		Description: strings.TrimSpace(input.Description),
		Landmarks:   strings.TrimSpace(input.Landmarks),
		City:        strings.TrimSpace(input.City),
		DistanceKm:  geo.PathLengthKm(input.Polyline),
		Polyline:    input.Polyline,
	}

	if _, err := s.routes.Insert(ctx, route); err != nil {
		// a committed debit with no route is a ledger violation; restore it
		if debited {
			if refundErr := s.users.RefundCredit(ctx, ownerID); refundErr != nil {
				return nil, nil, fmt.Errorf("insert route: %w (refund failed: %v)", err, refundErr)
			}
		}
		return nil, nil, fmt.Errorf("insert route: %w", err)
	}

	updated, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	return route, updated, nil
}

func (s *routeService) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	return s.routes.Get(ctx, id)
}

func (s *routeService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Route, error) {
	return s.routes.ListByOwner(ctx, ownerID)
}

func validateRouteInput(input NewRouteInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if !input.Difficulty.Valid() {
		return fmt.Errorf("%w: difficulty must be Easy, Moderate or Hard", domain.ErrValidation)
	}
	if len(input.Polyline) < 2 {
		return fmt.Errorf("%w: polyline needs at least two points", domain.ErrValidation)
	}
	for _, p := range input.Polyline {
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return fmt.Errorf("%w: polyline point out of range", domain.ErrValidation)
		}
	}
	return nil
}
