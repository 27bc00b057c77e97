package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"explorafit-server/internal/domain"
	"explorafit-server/internal/repository/sqlite"
	"explorafit-server/internal/service"
	"explorafit-server/internal/storage"
)

// fakeStorage records uploads in memory.
type fakeStorage struct {
	mu      sync.Mutex
	uploads map[string]string // key -> local path
	failAll bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string]string{}}
}

func (f *fakeStorage) UploadFile(ctx context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	if f.failAll {
		return "", errors.New("upload refused")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[opts.Key] = localPath
	return fmt.Sprintf("s3://%s/%s", opts.Bucket, opts.Key), nil
}

func (f *fakeStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (f *fakeStorage) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

type testEnv struct {
	exports service.ExportService
	routes  service.RouteService
	ownerID int64
	routeID int64
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	userRepo := sqlite.NewUserRepository(db)
	routeRepo := sqlite.NewRouteRepository(db)
	exportRepo := sqlite.NewExportRepository(db)
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, routeRepo.Init(ctx))
	require.NoError(t, exportRepo.Init(ctx))

	ownerID, err := userRepo.Create(ctx, &domain.User{Email: "x@example.com", PasswordHash: "h", Credits: 3})
	require.NoError(t, err)

	route := &domain.Route{
		OwnerID:    ownerID,
		Name:       "Loop",
		Difficulty: domain.DifficultyEasy,
		Polyline:   []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}},
	}
	_, err = routeRepo.Insert(ctx, route)
	require.NoError(t, err)

	return testEnv{
		exports: service.NewExportService(exportRepo, routeRepo),
		routes:  service.NewRouteService(userRepo, routeRepo),
		ownerID: ownerID,
		routeID: route.ID,
	}
}

func waitForStatus(t *testing.T, exports service.ExportService, jobID int64, want domain.ExportStatus) *domain.ExportJob {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := exports.GetJob(context.Background(), jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %d never reached status %s", jobID, want)
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestManager_CompletesExport(t *testing.T) {
	env := newTestEnv(t)
	store := newFakeStorage()

	m := NewManager(Config{
		ExportRoot: t.TempDir(),
		Bucket:     "bikes",
		KeyPrefix:  "route-exports",
		Logger:     quietLogger(),
	}, env.exports, env.routes, store)
	require.NoError(t, m.Start(context.Background()))
	defer m.Shutdown()

	job, err := env.exports.RequestExport(context.Background(), env.ownerID, env.routeID)
	require.NoError(t, err)
	require.NoError(t, m.Enqueue(context.Background(), job.ID))

	done := waitForStatus(t, env.exports, job.ID, domain.ExportStatusCompleted)
	require.True(t, strings.HasPrefix(done.S3Location, "s3://bikes/route-exports/"))
	require.NotNil(t, done.CompletedAt)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.uploads, 1)
	for key := range store.uploads {
		require.True(t, strings.HasSuffix(key, ".gpx"))
		require.Contains(t, key, fmt.Sprintf("route-%d/", env.routeID))
	}
}

func TestManager_FailedUploadMarksJobFailed(t *testing.T) {
	env := newTestEnv(t)
	store := newFakeStorage()
	store.failAll = true

	m := NewManager(Config{
		ExportRoot: t.TempDir(),
		Bucket:     "bikes",
		Logger:     quietLogger(),
	}, env.exports, env.routes, store)
	require.NoError(t, m.Start(context.Background()))
	defer m.Shutdown()

	job, err := env.exports.RequestExport(context.Background(), env.ownerID, env.routeID)
	require.NoError(t, err)
	require.NoError(t, m.Enqueue(context.Background(), job.ID))

	failed := waitForStatus(t, env.exports, job.ID, domain.ExportStatusFailed)
	require.Contains(t, failed.ErrorMessage, "upload")
}

func TestManager_ResumePicksUpPendingJobs(t *testing.T) {
	env := newTestEnv(t)
	store := newFakeStorage()

	// job created before the manager exists, as after a crash
	job, err := env.exports.RequestExport(context.Background(), env.ownerID, env.routeID)
	require.NoError(t, err)

	m := NewManager(Config{
		ExportRoot: t.TempDir(),
		Bucket:     "bikes",
		Logger:     quietLogger(),
	}, env.exports, env.routes, store)
	require.NoError(t, m.Start(context.Background()))
	defer m.Shutdown()
	require.NoError(t, m.Resume(context.Background()))

	waitForStatus(t, env.exports, job.ID, domain.ExportStatusCompleted)
}

// blockingStorage holds every upload on the gate so a job can be caught
// in flight.
type blockingStorage struct {
	*fakeStorage
	gate chan struct{}
}

func (b *blockingStorage) UploadFile(ctx context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.gate:
	}
	return b.fakeStorage.UploadFile(ctx, localPath, opts)
}

func TestManager_CancelStopsInFlightJob(t *testing.T) {
	env := newTestEnv(t)
	store := &blockingStorage{fakeStorage: newFakeStorage(), gate: make(chan struct{})}
	defer close(store.gate)

	m := NewManager(Config{
		ExportRoot: t.TempDir(),
		Bucket:     "bikes",
		Logger:     quietLogger(),
	}, env.exports, env.routes, store)
	require.NoError(t, m.Start(context.Background()))
	defer m.Shutdown()

	job, err := env.exports.RequestExport(context.Background(), env.ownerID, env.routeID)
	require.NoError(t, err)
	require.NoError(t, m.Enqueue(context.Background(), job.ID))
	waitForStatus(t, env.exports, job.ID, domain.ExportStatusProcessing)

	require.NoError(t, m.Cancel(context.Background(), job.ID))

	got, err := env.exports.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotEqual(t, domain.ExportStatusCompleted, got.Status)

	store.fakeStorage.mu.Lock()
	defer store.fakeStorage.mu.Unlock()
	require.Empty(t, store.fakeStorage.uploads, "an interrupted job must not upload")
}

func TestManager_CancelUnknownJobIsNoOp(t *testing.T) {
	env := newTestEnv(t)

	m := NewManager(Config{
		ExportRoot: t.TempDir(),
		Bucket:     "bikes",
		Logger:     quietLogger(),
	}, env.exports, env.routes, newFakeStorage())
	require.NoError(t, m.Start(context.Background()))
	defer m.Shutdown()

	require.NoError(t, m.Cancel(context.Background(), 42))
}

func TestRequestExport_OwnershipRequired(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.exports.RequestExport(context.Background(), env.ownerID+1, env.routeID)
	require.ErrorIs(t, err, domain.ErrRouteNotFound)
}
