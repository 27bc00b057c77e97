package service

import (
	"context"
	"time"

	"explorafit-server/internal/domain"
	"explorafit-server/internal/repository"
)

// ExportService manages GPX export job records on behalf of the export manager
// and the HTTP layer.
type ExportService interface {
	// RequestExport creates a pending job for a route the caller owns.
	RequestExport(ctx context.Context, ownerID, routeID int64) (*domain.ExportJob, error)
	GetJob(ctx context.Context, id int64) (*domain.ExportJob, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.ExportJob, error)
	ListByStatuses(ctx context.Context, statuses ...domain.ExportStatus) ([]domain.ExportJob, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ExportStatus, errMsg *string) error
	MarkCompleted(ctx context.Context, id int64, s3Location string) error
}

type exportService struct {
	exports repository.ExportRepository
	routes  repository.RouteRepository
}

func NewExportService(exports repository.ExportRepository, routes repository.RouteRepository) ExportService {
	return &exportService{
		exports: exports,
		routes:  routes,
	}
}

func (s *exportService) RequestExport(ctx context.Context, ownerID, routeID int64) (*domain.ExportJob, error) {
	route, err := s.routes.Get(ctx, routeID)
	if err != nil {
		return nil, err
	}
	// a route belonging to someone else is indistinguishable from an absent one
	if route.OwnerID != ownerID {
		return nil, domain.ErrRouteNotFound
	}

	job := &domain.ExportJob{
		RouteID: routeID,
		OwnerID: ownerID,
		Status:  domain.ExportStatusPending,
	}
	if _, err := s.exports.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *exportService) GetJob(ctx context.Context, id int64) (*domain.ExportJob, error) {
	return s.exports.Get(ctx, id)
}

func (s *exportService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.ExportJob, error) {
	return s.exports.ListByOwner(ctx, ownerID)
}

func (s *exportService) ListByStatuses(ctx context.Context, statuses ...domain.ExportStatus) ([]domain.ExportJob, error) {
	return s.exports.ListByStatuses(ctx, statuses...)
}

func (s *exportService) UpdateStatus(ctx context.Context, id int64, status domain.ExportStatus, errMsg *string) error {
	return s.exports.UpdateStatus(ctx, id, status, errMsg)
}

func (s *exportService) MarkCompleted(ctx context.Context, id int64, s3Location string) error {
	return s.exports.MarkCompleted(ctx, id, s3Location, time.Now())
}
