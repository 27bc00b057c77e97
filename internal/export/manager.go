package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"explorafit-server/internal/domain"
	"explorafit-server/internal/service"
	"explorafit-server/internal/storage"
)

// Manager runs GPX export jobs in the background: render, upload, mark done.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(ctx context.Context, jobID int64) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context, jobID int64) error
}

type Config struct {
	ExportRoot    string
	MaxConcurrent int
	Bucket        string
	KeyPrefix     string
	Logger        *logrus.Logger
}

type manager struct {
	cfg     Config
	exports service.ExportService
	routes  service.RouteService
	storage storage.Service

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[int64]*jobHandle
}

type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, exports service.ExportService, routes service.RouteService, storage storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:     cfg,
		exports: exports,
		routes:  routes,
		storage: storage,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		active:  make(map[int64]*jobHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.ExportRoot, 0o755); err != nil {
		return fmt.Errorf("create export root: %w", err)
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("export manager started, data dir: %s", m.cfg.ExportRoot)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("export manager stopped")
}

func (m *manager) Enqueue(ctx context.Context, jobID int64) error {
	job, err := m.exports.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	m.spawnJob(*job)
	return nil
}

func (m *manager) Resume(ctx context.Context) error {
	jobs, err := m.exports.ListByStatuses(ctx,
		domain.ExportStatusPending,
		domain.ExportStatusProcessing,
	)
	if err != nil {
		return err
	}

	for i := range jobs {
		m.spawnJob(jobs[i])
	}
	return nil
}

func (m *manager) spawnJob(job domain.ExportJob) {
	jobCtx, cancel := context.WithCancel(m.ctx)
	handle := &jobHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.registerJob(job.ID, handle)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.unregisterJob(job.ID)
			close(handle.done)
		}()
		select {
		case <-m.ctx.Done():
			return
		case <-jobCtx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.handleJob(jobCtx, &job)
		}
	}()
}

func (m *manager) registerJob(id int64, handle *jobHandle) {
	m.mu.Lock()
	m.active[id] = handle
	m.mu.Unlock()
}

func (m *manager) unregisterJob(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *manager) Cancel(ctx context.Context, jobID int64) error {
	m.mu.Lock()
	handle, ok := m.active[jobID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	handle.cancel()

	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) handleJob(ctx context.Context, job *domain.ExportJob) {
	logger := m.cfg.Logger.WithField("job_id", job.ID)

	if job.Status == domain.ExportStatusCompleted {
		logger.Debug("job already completed, skipping")
		return
	}

	if err := m.exports.UpdateStatus(ctx, job.ID, domain.ExportStatusProcessing, nil); err != nil {
		logger.Errorf("update status failed: %v", err)
		return
	}

	route, err := m.routes.GetRoute(ctx, job.RouteID)
	if err != nil {
		m.failJob(ctx, job.ID, fmt.Errorf("load route: %w", err))
		return
	}

	localPath := filepath.Join(m.cfg.ExportRoot, fmt.Sprintf("export-%s.gpx", uuid.NewString()))
	if err := writeGPXFile(localPath, route); err != nil {
		m.failJob(ctx, job.ID, err)
		return
	}

	key := fmt.Sprintf("route-%d/%s", route.ID, filepath.Base(localPath))
	if prefix := strings.Trim(m.cfg.KeyPrefix, "/"); prefix != "" {
		key = fmt.Sprintf("%s/%s", prefix, key)
	}

	dest, err := m.storage.UploadFile(ctx, localPath, storage.UploadOptions{
		Bucket:      m.cfg.Bucket,
		Key:         key,
		ContentType: "application/gpx+xml",
	})
	if err != nil {
		m.failJob(ctx, job.ID, fmt.Errorf("upload: %w", err))
		return
	}

	if err := m.exports.MarkCompleted(ctx, job.ID, dest); err != nil {
		logger.Errorf("mark completed: %v", err)
		return
	}

	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		logger.Warnf("cleanup export file: %v", err)
	}

	logger.Infof("export completed and uploaded to %s", dest)
}

func (m *manager) failJob(ctx context.Context, jobID int64, failErr error) {
	msg := failErr.Error()
	if err := m.exports.UpdateStatus(ctx, jobID, domain.ExportStatusFailed, &msg); err != nil {
		m.cfg.Logger.WithField("job_id", jobID).Errorf("persist failure status: %v", err)
	}
	m.cfg.Logger.WithField("job_id", jobID).Error(msg)
}

func writeGPXFile(path string, route *domain.Route) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := WriteGPX(f, route); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

var _ Manager = (*manager)(nil)
