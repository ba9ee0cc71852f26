package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"citymap-backend-go/internal/memstore"
	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func point(id string, status models.PointStatus, lat, lng float64) models.Point {
	return models.Point{
		ID:           id,
		ContentClass: models.ClassPlace,
		Status:       status,
		Title:        id,
		AuthorID:     "alice",
		Lat:          lat,
		Lng:          lng,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func seed(t *testing.T, store *memstore.Store, points ...models.Point) {
	t.Helper()
	require.NoError(t, store.InTx(context.Background(), func(tx services.Tx) error {
		for _, p := range points {
			if err := tx.InsertPoint(context.Background(), p); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestFailedUnitRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, point("p1", models.StatusPublished, 52, 21))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx services.Tx) error {
		p, err := tx.GetPoint(ctx, "p1")
		require.NoError(t, err)
		p.Title = "changed"
		require.NoError(t, tx.UpdatePoint(ctx, p))
		require.NoError(t, tx.InsertPoint(ctx, point("p2", models.StatusPendingReview, 52, 21)))
		_, err = tx.NextCaseNumber(ctx)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(tx services.Tx) error {
		p, err := tx.GetPoint(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", p.Title)
		_, err = tx.GetPoint(ctx, "p2")
		assert.ErrorIs(t, err, services.ErrRecordNotFound)
		return nil
	}))

	require.NoError(t, store.InTx(ctx, func(tx services.Tx) error {
		n, err := tx.NextCaseNumber(ctx)
		assert.Equal(t, int64(1), n)
		return err
	}))
}

func TestViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	err := store.View(ctx, func(tx services.Tx) error {
		return tx.InsertPoint(ctx, point("p1", models.StatusPublished, 52, 21))
	})
	require.Error(t, err)

	err = store.View(ctx, func(tx services.Tx) error {
		_, err := tx.LockDailyQuota(ctx, "alice", "2024-06-03", models.QuotaReports, 5)
		return err
	})
	require.Error(t, err)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := memstore.New()
	called := false
	err := store.InTx(ctx, func(services.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, point("p1", models.StatusPublished, 52, 21))

	err := store.InTx(ctx, func(tx services.Tx) error {
		first := models.Overlay{ID: "o1", PointID: "p1", Kind: models.OverlayEdit, Status: models.OverlayPending, SubmittedAt: created}
		require.NoError(t, tx.InsertOverlay(ctx, first))
		second := first
		second.ID = "o2"
		assert.Error(t, tx.InsertOverlay(ctx, second))
		deletion := first
		deletion.ID = "o3"
		deletion.Kind = models.OverlayDeletion
		assert.NoError(t, tx.InsertOverlay(ctx, deletion))

		flag := models.ReportFlag{PointID: "p1", ReporterID: "bob", Reason: "closed", CreatedAt: created}
		require.NoError(t, tx.InsertFlag(ctx, flag))
		assert.Error(t, tx.InsertFlag(ctx, flag))
		return nil
	})
	require.NoError(t, err)
}

func TestNearbyPointsFiltersBox(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store,
		point("inside", models.StatusPublished, 52.0001, 21.0001),
		point("outside", models.StatusPublished, 53, 21),
		point("deleted", models.StatusDeleted, 52.0001, 21.0001),
	)
	require.NoError(t, store.View(ctx, func(tx services.Tx) error {
		items, err := tx.NearbyPoints(ctx, services.NearbyQuery{
			MinLat: 51.99, MaxLat: 52.01, MinLng: 20.99, MaxLng: 21.01,
			ContentClass: models.ClassPlace,
			Statuses:     []models.PointStatus{models.StatusPendingReview, models.StatusPublished},
		})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "inside", items[0].ID)
		return nil
	}))
}

func TestListPointsPaging(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	var points []models.Point
	for i, id := range []string{"a", "b", "c", "d"} {
		p := point(id, models.StatusPublished, 52, 21)
		p.CreatedAt = created.Add(time.Duration(i) * time.Minute)
		points = append(points, p)
	}
	seed(t, store, points...)

	require.NoError(t, store.View(ctx, func(tx services.Tx) error {
		page, err := tx.ListPoints(ctx, services.PointFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "c", page[0].ID)
		assert.Equal(t, "b", page[1].ID)

		empty, err := tx.ListPoints(ctx, services.PointFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, empty)
		return nil
	}))
}

func TestRestrictionCategoriesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	categories := []string{"voting"}
	require.NoError(t, store.InTx(ctx, func(tx services.Tx) error {
		return tx.SaveRestriction(ctx, models.Restriction{UserID: "alice", BanState: models.BanNone, Categories: categories})
	}))
	categories[0] = "add_places"

	require.NoError(t, store.View(ctx, func(tx services.Tx) error {
		r, err := tx.GetRestriction(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{"voting"}, r.Categories)
		return nil
	}))
}
