package services

import (
	"context"
	"time"

	"citymap-backend-go/internal/models"
)

// Store runs units of work against persistent state. InTx commits all writes
// made by fn or none of them. View is read-only.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

type PointFilter struct {
	Statuses     []models.PointStatus
	ContentClass models.ContentClass
	Category     string
	AuthorID     string
	Limit        int
	Offset       int
}

// NearbyQuery selects candidate points inside a lat/lng bounding box.
type NearbyQuery struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	ContentClass   models.ContentClass
	Category       string
	Statuses       []models.PointStatus
}

// Tx is one unit of work. Getters inside InTx lock the returned row until
// the unit of work ends.
type Tx interface {
	GetPoint(ctx context.Context, id string) (models.Point, error)
	InsertPoint(ctx context.Context, point models.Point) error
	UpdatePoint(ctx context.Context, point models.Point) error
	DeletePoint(ctx context.Context, id string) error
	ListPoints(ctx context.Context, filter PointFilter) ([]models.Point, error)
	NearbyPoints(ctx context.Context, query NearbyQuery) ([]models.Point, error)
	ExpiredResolved(ctx context.Context, now time.Time) ([]models.Point, error)
	StalePending(ctx context.Context, before time.Time) ([]models.Point, error)
	DeletedBefore(ctx context.Context, before time.Time) ([]string, error)
	NextCaseNumber(ctx context.Context) (int64, error)
	SerializeSubmissions(ctx context.Context, key string) error

	ActiveOverlay(ctx context.Context, pointID string, kind models.OverlayKind) (models.Overlay, error)
	InsertOverlay(ctx context.Context, overlay models.Overlay) error
	UpdateOverlay(ctx context.Context, overlay models.Overlay) error
	PointOverlays(ctx context.Context, pointID string) ([]models.Overlay, error)
	PendingOverlays(ctx context.Context, limit int) ([]models.Overlay, error)

	GetVote(ctx context.Context, pointID, userID string) (models.Vote, error)
	SaveVote(ctx context.Context, vote models.Vote) error
	DeleteVote(ctx context.Context, pointID, userID string) error

	GetFlag(ctx context.Context, pointID, reporterID string) (models.ReportFlag, error)
	InsertFlag(ctx context.Context, flag models.ReportFlag) error
	PointFlags(ctx context.Context, pointID string) ([]models.ReportFlag, error)
	ClearFlags(ctx context.Context, pointID string) error
	PurgeInteractions(ctx context.Context, pointID string) error

	LockDailyQuota(ctx context.Context, userID, day string, class models.QuotaClass, initial int) (models.DailyQuota, error)
	SaveDailyQuota(ctx context.Context, quota models.DailyQuota) error
	DailyQuotas(ctx context.Context, userID, day string) ([]models.DailyQuota, error)
	LockPhotoQuota(ctx context.Context, userID, month string, initialLimit int64) (models.PhotoQuota, error)
	GetPhotoQuota(ctx context.Context, userID, month string) (models.PhotoQuota, error)
	SavePhotoQuota(ctx context.Context, quota models.PhotoQuota) error

	GetRestriction(ctx context.Context, userID string) (models.Restriction, error)
	SaveRestriction(ctx context.Context, restriction models.Restriction) error

	AppendActivity(ctx context.Context, entry models.ActivityEntry) error
	RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}
