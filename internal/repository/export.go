package repository

import (
	"context"
	"time"

	"explorafit-server/internal/domain"
)

// ExportRepository tracks background GPX export jobs.
type ExportRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, job *domain.ExportJob) (int64, error)
	Get(ctx context.Context, id int64) (*domain.ExportJob, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.ExportJob, error)
	ListByStatuses(ctx context.Context, statuses ...domain.ExportStatus) ([]domain.ExportJob, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ExportStatus, errorMessage *string) error
	MarkCompleted(ctx context.Context, id int64, s3Location string, completedAt time.Time) error
}
