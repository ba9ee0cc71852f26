package services_test

import (
	"testing"
	"time"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditAndResolve(t *testing.T) {
	h := newHarness(t)
	report := h.published(bob, reportAt(baseLat, baseLng, "graffiti"))
	_, err := h.engine.FlagPoint(h.ctx, alice, services.FlagPointRequest{PointID: report.ID, Reason: "wrong title"})
	require.NoError(t, err)
	require.Equal(t, models.ReportReported, *h.point(report.ID).ReportStatus)

	result, err := h.engine.EditAndResolve(h.ctx, moderator, services.EditAndResolveRequest{
		PointID: report.ID,
		Fields:  models.PointFields{Title: strPtr("Graffiti on the viaduct")},
		Reason:  "title fixed",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Overlay)
	assert.Equal(t, models.OverlayApproved, result.Overlay.Status)
	assert.Equal(t, "Graffiti on the viaduct", result.Point.Title)
	assert.Equal(t, 0, result.Point.ReportsCount)
	assert.Equal(t, models.ReportAdded, *result.Point.ReportStatus)

	stored := h.point(report.ID)
	assert.Equal(t, "Graffiti on the viaduct", stored.Title)
	assert.Equal(t, 0, stored.ReportsCount)

	flag, err := h.engine.FlagPoint(h.ctx, alice, services.FlagPointRequest{PointID: report.ID, Reason: "still wrong"})
	require.NoError(t, err)
	assert.True(t, flag.Created)
}

func TestEditAndResolveIsModeratorOnly(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.EditAndResolve(h.ctx, alice, services.EditAndResolveRequest{
		PointID: point.ID,
		Fields:  models.PointFields{Title: strPtr("New")},
	})
	requireKind(t, err, services.KindForbidden)
	assert.Equal(t, "Corner bakery", h.point(point.ID).Title)
}

func TestEditAndResolveRollsBackOnInvalidEdit(t *testing.T) {
	h := newHarness(t)
	point := h.published(bob, placeAt(baseLat, baseLng))
	_, err := h.engine.FlagPoint(h.ctx, alice, services.FlagPointRequest{PointID: point.ID, Reason: "closed"})
	require.NoError(t, err)

	_, err = h.engine.EditAndResolve(h.ctx, moderator, services.EditAndResolveRequest{PointID: point.ID})
	requireKind(t, err, services.KindValidation)
	assert.Equal(t, 1, h.point(point.ID).ReportsCount)

	history, err := h.engine.PointHistory(h.ctx, moderator, services.PointHistoryRequest{PointID: point.ID})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRunMaintenance(t *testing.T) {
	h := newHarness(t)
	report := h.published(bob, reportAt(baseLat, baseLng, "graffiti"))
	_, err := h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: report.ID, Status: models.ReportResolved})
	require.NoError(t, err)

	place := h.published(bob, placeAt(baseLat+0.01, baseLng))
	_, err = h.engine.RequestDeletion(h.ctx, moderator, services.RequestDeletionRequest{PointID: place.ID, Immediate: true})
	require.NoError(t, err)

	stale := h.submit(alice, placeAt(baseLat+0.02, baseLng))

	h.clock.Advance(31 * 24 * time.Hour)
	fresh := h.submit(alice, placeAt(baseLat+0.03, baseLng))

	result, err := h.engine.RunMaintenance(h.ctx, services.SystemActor(), services.RunMaintenanceRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{report.ID}, result.Purged)
	assert.Equal(t, []string{stale.ID}, result.ExpiredPending)
	assert.Empty(t, result.HardDeleted)
	assert.Equal(t, models.StatusRejected, h.point(stale.ID).Status)
	assert.Equal(t, models.StatusPendingReview, h.point(fresh.ID).Status)
	assert.Equal(t, models.StatusDeleted, h.point(report.ID).Status)

	h.clock.Advance(60 * 24 * time.Hour)
	result, err = h.engine.RunMaintenance(h.ctx, services.SystemActor(), services.RunMaintenanceRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.Purged)
	assert.Equal(t, []string{place.ID}, result.HardDeleted)
	assert.Equal(t, []string{fresh.ID}, result.ExpiredPending)

	_, err = h.engine.GetPoint(h.ctx, moderator, services.GetPointRequest{PointID: place.ID})
	requireKind(t, err, services.KindNotFound)
	assert.Equal(t, models.StatusDeleted, h.point(report.ID).Status)
}

func TestMaintenanceCanBeDisabled(t *testing.T) {
	h := newHarness(t, func(p *services.Policy) {
		p.PendingExpiry = 0
		p.DeletedRetention = 0
	})
	stale := h.submit(alice, placeAt(baseLat, baseLng))
	h.clock.Advance(365 * 24 * time.Hour)

	result, err := h.engine.RunMaintenance(h.ctx, services.SystemActor(), services.RunMaintenanceRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.ExpiredPending)
	assert.Equal(t, models.StatusPendingReview, h.point(stale.ID).Status)
}

func TestSweepsAreModeratorOnly(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.PurgeExpired(h.ctx, alice, services.PurgeExpiredRequest{})
	requireKind(t, err, services.KindForbidden)
	_, err = h.engine.RunMaintenance(h.ctx, alice, services.RunMaintenanceRequest{})
	requireKind(t, err, services.KindForbidden)
	_, err = h.engine.ModerationQueue(h.ctx, alice, services.ModerationQueueRequest{})
	requireKind(t, err, services.KindForbidden)
	_, err = h.engine.ActivityLog(h.ctx, alice, services.ActivityLogRequest{})
	requireKind(t, err, services.KindForbidden)
}

func TestModerationQueue(t *testing.T) {
	h := newHarness(t)
	pending := h.submit(alice, placeAt(baseLat, baseLng))
	flagged := h.published(bob, placeAt(baseLat+0.01, baseLng))
	_, err := h.engine.FlagPoint(h.ctx, alice, services.FlagPointRequest{PointID: flagged.ID, Reason: "closed"})
	require.NoError(t, err)

	edited := h.published(bob, placeAt(baseLat+0.02, baseLng))
	_, err = h.engine.ProposeEdit(h.ctx, bob, services.ProposeEditRequest{PointID: edited.ID, Fields: models.PointFields{Title: strPtr("Renamed")}})
	require.NoError(t, err)

	resolved := h.published(bob, reportAt(baseLat+0.03, baseLng, "graffiti"))
	_, err = h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: resolved.ID, Status: models.ReportResolved})
	require.NoError(t, err)

	queue, err := h.engine.ModerationQueue(h.ctx, moderator, services.ModerationQueueRequest{})
	require.NoError(t, err)
	require.Len(t, queue.PendingPoints, 1)
	assert.Equal(t, pending.ID, queue.PendingPoints[0].ID)
	require.Len(t, queue.PendingChanges, 1)
	assert.Equal(t, edited.ID, queue.PendingChanges[0].PointID)
	assert.Equal(t, models.OverlayEdit, queue.PendingChanges[0].Kind)
	require.Len(t, queue.ReportedPoints, 1)
	assert.Equal(t, flagged.ID, queue.ReportedPoints[0].ID)
	require.Len(t, queue.ExpiringReports, 1)
	assert.Equal(t, resolved.ID, queue.ExpiringReports[0].ID)
}

func TestActivityLogRecordsModeratorActions(t *testing.T) {
	h := newHarness(t)
	point := h.submit(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.Reject(h.ctx, moderator, services.RejectRequest{PointID: point.ID, Reason: "blurry"})
	require.NoError(t, err)
	_, err = h.engine.Ban(h.ctx, moderator, services.BanRequest{UserID: "alice", Permanent: true})
	require.NoError(t, err)

	entries, err := h.engine.ActivityLog(h.ctx, moderator, services.ActivityLogRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ban_user", entries[0].Action)
	assert.Equal(t, "alice", entries[0].ObjectID)
	assert.Equal(t, "reject_point", entries[1].Action)
	assert.Equal(t, point.ID, entries[1].ObjectID)
	assert.Equal(t, "blurry", entries[1].Description)
	assert.Equal(t, "mod-1", entries[1].ActorID)
}
