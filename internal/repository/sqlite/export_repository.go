package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"explorafit-server/internal/domain"
	"explorafit-server/internal/repository"
)

const createExportsTable = `
CREATE TABLE IF NOT EXISTS exports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	route_id INTEGER NOT NULL,
	owner_id INTEGER NOT NULL,
	status TEXT NOT NULL,
	s3_location TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME NULL,
	FOREIGN KEY(route_id) REFERENCES routes(id)
);
CREATE INDEX IF NOT EXISTS idx_exports_owner_id ON exports(owner_id);
`

type ExportRepository struct {
	db *sql.DB
}

func NewExportRepository(db *sql.DB) repository.ExportRepository {
	return &ExportRepository{db: db}
}

func (r *ExportRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createExportsTable); err != nil {
		return fmt.Errorf("create exports table: %w", err)
	}
	return nil
}

func (r *ExportRepository) Create(ctx context.Context, job *domain.ExportJob) (int64, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO exports (route_id, owner_id, status, s3_location, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.RouteID,
		job.OwnerID,
		string(job.Status),
		job.S3Location,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert export job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("export last insert id: %w", err)
	}
	job.ID = id
	return id, nil
}

func (r *ExportRepository) Get(ctx context.Context, id int64) (*domain.ExportJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, route_id, owner_id, status, s3_location, error_message, created_at, updated_at, completed_at
FROM exports
WHERE id = ?`,
		id,
	)
	return scanExportJob(row)
}

func (r *ExportRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.ExportJob, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, route_id, owner_id, status, s3_location, error_message, created_at, updated_at, completed_at
FROM exports
WHERE owner_id = ?
ORDER BY created_at DESC, id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query export jobs: %w", err)
	}
	defer rows.Close()

	return collectExportJobs(rows)
}

func (r *ExportRepository) ListByStatuses(ctx context.Context, statuses ...domain.ExportStatus) ([]domain.ExportJob, error) {
	if len(statuses) == 0 {
		return []domain.ExportJob{}, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}

	query := fmt.Sprintf(`
SELECT id, route_id, owner_id, status, s3_location, error_message, created_at, updated_at, completed_at
FROM exports
WHERE status IN (%s)
ORDER BY id ASC`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query export jobs by status: %w", err)
	}
	defer rows.Close()

	return collectExportJobs(rows)
}

func (r *ExportRepository) UpdateStatus(ctx context.Context, id int64, status domain.ExportStatus, errorMessage *string) error {
	msg := ""
	if errorMessage != nil {
		msg = *errorMessage
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE exports
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?`,
		string(status),
		msg,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update export status: %w", err)
	}
	return nil
}

func (r *ExportRepository) MarkCompleted(ctx context.Context, id int64, s3Location string, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE exports
SET status = ?, s3_location = ?, completed_at = ?, updated_at = ?
WHERE id = ?`,
		string(domain.ExportStatusCompleted),
		s3Location,
		completedAt.UTC(),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	return nil
}

func collectExportJobs(rows *sql.Rows) ([]domain.ExportJob, error) {
	var jobs []domain.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanExportJob(scanner interface {
	Scan(dest ...any) error
}) (*domain.ExportJob, error) {
	var (
		job         domain.ExportJob
		status      string
		completedAt sql.NullTime
	)

	if err := scanner.Scan(
		&job.ID,
		&job.RouteID,
		&job.OwnerID,
		&status,
		&job.S3Location,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExportNotFound
		}
		return nil, fmt.Errorf("scan export job: %w", err)
	}

	job.Status = domain.ExportStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}
