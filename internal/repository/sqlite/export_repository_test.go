package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"explorafit-server/internal/domain"
)

func createTestRoute(t *testing.T, routes *RouteRepository, ownerID int64) int64 {
	t.Helper()
	id, err := routes.Insert(context.Background(), &domain.Route{
		OwnerID:    ownerID,
		Name:       "export me",
		Difficulty: domain.DifficultyEasy,
		Polyline:   []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}},
	})
	require.NoError(t, err)
	return id
}

func TestExportRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db).(*UserRepository)
	routes := NewRouteRepository(db).(*RouteRepository)
	exports := NewExportRepository(db)
	ctx := context.Background()

	ownerID := createTestUser(t, users, "exporter@example.com", 3)
	routeID := createTestRoute(t, routes, ownerID)

	job := &domain.ExportJob{
		RouteID: routeID,
		OwnerID: ownerID,
		Status:  domain.ExportStatusPending,
	}
	id, err := exports.Create(ctx, job)
	require.NoError(t, err)
	require.Positive(t, id)

	require.NoError(t, exports.UpdateStatus(ctx, id, domain.ExportStatusProcessing, nil))
	got, err := exports.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.ExportStatusProcessing, got.Status)
	require.Nil(t, got.CompletedAt)

	require.NoError(t, exports.MarkCompleted(ctx, id, "s3://bucket/route-exports/route-1/x.gpx", time.Now()))
	got, err = exports.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.ExportStatusCompleted, got.Status)
	require.Equal(t, "s3://bucket/route-exports/route-1/x.gpx", got.S3Location)
	require.NotNil(t, got.CompletedAt)

	_, err = exports.Get(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrExportNotFound)
}

func TestExportRepository_FailureKeepsMessage(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db).(*UserRepository)
	routes := NewRouteRepository(db).(*RouteRepository)
	exports := NewExportRepository(db)
	ctx := context.Background()

	ownerID := createTestUser(t, users, "failer@example.com", 3)
	routeID := createTestRoute(t, routes, ownerID)

	id, err := exports.Create(ctx, &domain.ExportJob{RouteID: routeID, OwnerID: ownerID, Status: domain.ExportStatusPending})
	require.NoError(t, err)

	msg := "upload: connection refused"
	require.NoError(t, exports.UpdateStatus(ctx, id, domain.ExportStatusFailed, &msg))

	got, err := exports.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.ExportStatusFailed, got.Status)
	require.Equal(t, msg, got.ErrorMessage)
}

func TestExportRepository_ListByStatuses(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db).(*UserRepository)
	routes := NewRouteRepository(db).(*RouteRepository)
	exports := NewExportRepository(db)
	ctx := context.Background()

	ownerID := createTestUser(t, users, "pending@example.com", 3)
	routeID := createTestRoute(t, routes, ownerID)

	pendingID, err := exports.Create(ctx, &domain.ExportJob{RouteID: routeID, OwnerID: ownerID, Status: domain.ExportStatusPending})
	require.NoError(t, err)
	doneID, err := exports.Create(ctx, &domain.ExportJob{RouteID: routeID, OwnerID: ownerID, Status: domain.ExportStatusPending})
	require.NoError(t, err)
	require.NoError(t, exports.MarkCompleted(ctx, doneID, "s3://b/k", time.Now()))

	unfinished, err := exports.ListByStatuses(ctx, domain.ExportStatusPending, domain.ExportStatusProcessing)
	require.NoError(t, err)
	require.Len(t, unfinished, 1)
	require.Equal(t, pendingID, unfinished[0].ID)

	none, err := exports.ListByStatuses(ctx)
	require.NoError(t, err)
	require.Empty(t, none)
}
