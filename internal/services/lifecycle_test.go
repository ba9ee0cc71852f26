package services_test

import (
	"strings"
	"testing"
	"time"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitCreatesPendingReportWithCaseID(t *testing.T) {
	h := newHarness(t)
	first := h.submit(alice, reportAt(baseLat, baseLng, "dziura_w_jezdni"))
	second := h.submit(bob, reportAt(baseLat+0.01, baseLng, "dziura_w_jezdni"))
	place := h.submit(bob, placeAt(baseLat, baseLng))

	assert.Equal(t, models.StatusPendingReview, first.Status)
	require.NotNil(t, first.CaseID)
	require.NotNil(t, second.CaseID)
	assert.Equal(t, "ZGL-000001", *first.CaseID)
	assert.Equal(t, "ZGL-000002", *second.CaseID)
	assert.Greater(t, *second.CaseNumber, *first.CaseNumber)
	require.NotNil(t, first.ReportStatus)
	assert.Equal(t, models.ReportAdded, *first.ReportStatus)
	assert.Equal(t, "alice", first.AuthorID)

	assert.Nil(t, place.CaseID)
	assert.Nil(t, place.ReportStatus)
	assert.Equal(t, []services.EventType{
		services.EventPointSubmitted,
		services.EventPointSubmitted,
		services.EventPointSubmitted,
	}, h.events.Types())
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *services.SubmitRequest)
	}{
		{"blank title", func(r *services.SubmitRequest) { r.Title = "   " }},
		{"long title", func(r *services.SubmitRequest) { r.Title = strings.Repeat("ą", 256) }},
		{"zero latitude", func(r *services.SubmitRequest) { r.Lat = 0 }},
		{"latitude out of range", func(r *services.SubmitRequest) { r.Lat = 91 }},
		{"longitude out of range", func(r *services.SubmitRequest) { r.Lng = -181 }},
		{"unknown class", func(r *services.SubmitRequest) { r.ContentClass = "event" }},
		{"missing report category", func(r *services.SubmitRequest) { r.Category = "" }},
		{"unknown report category", func(r *services.SubmitRequest) { r.Category = "noise" }},
		{"bad website", func(r *services.SubmitRequest) { r.Website = strPtr("ftp://example.org") }},
		{"bad phone", func(r *services.SubmitRequest) { r.Phone = strPtr("call me") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			req := reportAt(baseLat, baseLng, "graffiti")
			tc.mutate(&req)
			_, err := h.engine.Submit(h.ctx, alice, req)
			requireKind(t, err, services.KindValidation)
			assert.Empty(t, h.events.Types())
			assert.Equal(t, 5, h.limits(alice).Reports)
		})
	}
}

func TestSubmitPlaceRejectsCategory(t *testing.T) {
	h := newHarness(t)
	req := placeAt(baseLat, baseLng)
	req.Category = "graffiti"
	_, err := h.engine.Submit(h.ctx, alice, req)
	requireKind(t, err, services.KindValidation)
}

func TestSubmitRequiresAuthenticatedActor(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Submit(h.ctx, services.Actor{}, placeAt(baseLat, baseLng))
	requireKind(t, err, services.KindForbidden)
}

func TestApproveAndReject(t *testing.T) {
	h := newHarness(t)
	point := h.submit(alice, placeAt(baseLat, baseLng))

	_, err := h.engine.Approve(h.ctx, alice, services.ApproveRequest{PointID: point.ID})
	requireKind(t, err, services.KindForbidden)

	approved, err := h.engine.Approve(h.ctx, moderator, services.ApproveRequest{PointID: point.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, approved.Status)

	_, err = h.engine.Approve(h.ctx, moderator, services.ApproveRequest{PointID: point.ID})
	requireKind(t, err, services.KindInvalidTransition)
	_, err = h.engine.Reject(h.ctx, moderator, services.RejectRequest{PointID: point.ID})
	requireKind(t, err, services.KindInvalidTransition)
	_, err = h.engine.Approve(h.ctx, moderator, services.ApproveRequest{PointID: "missing"})
	requireKind(t, err, services.KindNotFound)
}

func TestPendingPointsAreHiddenFromOthers(t *testing.T) {
	h := newHarness(t)
	point := h.submit(alice, placeAt(baseLat, baseLng))

	_, err := h.engine.GetPoint(h.ctx, bob, services.GetPointRequest{PointID: point.ID})
	requireKind(t, err, services.KindNotFound)
	_, err = h.engine.GetPoint(h.ctx, services.Actor{}, services.GetPointRequest{PointID: point.ID})
	requireKind(t, err, services.KindNotFound)
	assert.Equal(t, point.ID, h.view(alice, point.ID).Point.ID)

	public, err := h.engine.ListPoints(h.ctx, services.Actor{}, services.ListPointsRequest{})
	require.NoError(t, err)
	assert.Empty(t, public)

	own, err := h.engine.ListPoints(h.ctx, alice, services.ListPointsRequest{
		AuthorID: "alice",
		Statuses: []models.PointStatus{models.StatusPendingReview},
	})
	require.NoError(t, err)
	require.Len(t, own, 1)

	_, err = h.engine.ListPoints(h.ctx, bob, services.ListPointsRequest{Statuses: []models.PointStatus{models.StatusPendingReview}})
	requireKind(t, err, services.KindForbidden)
}

func TestEditOverlayIsIsolatedUntilApproved(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))

	overlay, err := h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{
		PointID: point.ID,
		Fields:  models.PointFields{Title: strPtr("Corner bakery and cafe"), Phone: strPtr("+48 22 123 45 67")},
		Reason:  "new opening hours",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OverlayPending, overlay.Status)
	assert.Equal(t, "Corner bakery", *overlay.PrevFields.Title)
	assert.Equal(t, "Corner bakery and cafe", *overlay.NewFields.Title)
	assert.Nil(t, overlay.NewFields.Content)

	public := h.view(bob, point.ID)
	assert.Equal(t, "Corner bakery", public.Point.Title)
	assert.Nil(t, public.PendingEdit)

	own := h.view(alice, point.ID)
	require.NotNil(t, own.PendingEdit)
	assert.Equal(t, overlay.ID, own.PendingEdit.ID)

	updated, err := h.engine.ApproveEdit(h.ctx, moderator, services.ApproveEditRequest{PointID: point.ID})
	require.NoError(t, err)
	assert.Equal(t, "Corner bakery and cafe", updated.Title)
	assert.Equal(t, "Fresh bread from 6am", updated.Content)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "+48 22 123 45 67", *updated.Phone)

	history, err := h.engine.PointHistory(h.ctx, alice, services.PointHistoryRequest{PointID: point.ID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.OverlayApproved, history[0].Status)
	assert.Equal(t, "mod-1", *history[0].ResolvedBy)

	_, err = h.engine.ApproveEdit(h.ctx, moderator, services.ApproveEditRequest{PointID: point.ID})
	requireKind(t, err, services.KindInvalidTransition)
}

func TestProposeEditRules(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	edit := services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Renamed")}}

	_, err := h.engine.ProposeEdit(h.ctx, bob, edit)
	requireKind(t, err, services.KindForbidden)

	_, err = h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Corner bakery")}})
	requireKind(t, err, services.KindValidation)

	_, err = h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Website: strPtr("not a url")}})
	requireKind(t, err, services.KindValidation)

	_, err = h.engine.ProposeEdit(h.ctx, alice, edit)
	require.NoError(t, err)
	_, err = h.engine.ProposeEdit(h.ctx, alice, edit)
	requireKind(t, err, services.KindInvalidTransition)

	pending := h.submit(alice, placeAt(baseLat+0.01, baseLng))
	_, err = h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: pending.ID, Fields: models.PointFields{Title: strPtr("x")}})
	requireKind(t, err, services.KindInvalidTransition)
}

func TestRejectEditLeavesPointUntouched(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Renamed")}})
	require.NoError(t, err)

	overlay, err := h.engine.RejectEdit(h.ctx, moderator, services.RejectEditRequest{PointID: point.ID, Reason: "not accurate"})
	require.NoError(t, err)
	assert.Equal(t, models.OverlayRejected, overlay.Status)
	assert.Equal(t, "not accurate", *overlay.ResolutionReason)
	assert.Equal(t, "Corner bakery", h.point(point.ID).Title)

	// a fresh edit may be proposed once the old one is resolved
	_, err = h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Renamed")}})
	require.NoError(t, err)
}

func TestImmediateEditIsModeratorOnly(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	req := services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Renamed")}, Immediate: true}

	_, err := h.engine.ProposeEdit(h.ctx, alice, req)
	requireKind(t, err, services.KindForbidden)

	overlay, err := h.engine.ProposeEdit(h.ctx, moderator, req)
	require.NoError(t, err)
	assert.Equal(t, models.OverlayApproved, overlay.Status)
	assert.Equal(t, "Renamed", h.point(point.ID).Title)
}

func TestDeletionLifecycle(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.CastVote(h.ctx, bob, services.CastVoteRequest{PointID: point.ID, Direction: models.VoteUp})
	require.NoError(t, err)
	_, err = h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Renamed")}})
	require.NoError(t, err)

	_, err = h.engine.RequestDeletion(h.ctx, bob, services.RequestDeletionRequest{PointID: point.ID})
	requireKind(t, err, services.KindForbidden)

	overlay, err := h.engine.RequestDeletion(h.ctx, alice, services.RequestDeletionRequest{PointID: point.ID, Reason: "  closed   for good "})
	require.NoError(t, err)
	assert.Equal(t, models.OverlayDeletion, overlay.Kind)
	assert.Equal(t, "closed for good", *overlay.Reason)
	assert.Equal(t, models.StatusPublished, h.point(point.ID).Status)

	_, err = h.engine.RequestDeletion(h.ctx, alice, services.RequestDeletionRequest{PointID: point.ID})
	requireKind(t, err, services.KindInvalidTransition)
	_, err = h.engine.RejectEdit(h.ctx, moderator, services.RejectEditRequest{PointID: point.ID})
	require.NoError(t, err)
	_, err = h.engine.ProposeEdit(h.ctx, alice, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Other")}})
	requireKind(t, err, services.KindInvalidTransition)

	before := h.limits(alice).PlacesAndCuriosities
	deleted, err := h.engine.ApproveDeletion(h.ctx, moderator, services.ApproveDeletionRequest{PointID: point.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, deleted.Status)
	assert.NotNil(t, deleted.DeletedAt)
	assert.Zero(t, deleted.VotesCount)
	assert.Equal(t, before+1, h.limits(alice).PlacesAndCuriosities)

	_, err = h.engine.GetPoint(h.ctx, bob, services.GetPointRequest{PointID: point.ID})
	requireKind(t, err, services.KindNotFound)
	_, err = h.engine.CastVote(h.ctx, bob, services.CastVoteRequest{PointID: point.ID, Direction: models.VoteUp})
	requireKind(t, err, services.KindInvalidTransition)
}

func TestApproveDeletionRejectsPendingEdit(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.ProposeEdit(h.ctx, moderator, services.ProposeEditRequest{PointID: point.ID, Fields: models.PointFields{Title: strPtr("Renamed")}})
	require.NoError(t, err)
	_, err = h.engine.RequestDeletion(h.ctx, moderator, services.RequestDeletionRequest{PointID: point.ID, Immediate: true})
	require.NoError(t, err)

	history, err := h.engine.PointHistory(h.ctx, moderator, services.PointHistoryRequest{PointID: point.ID})
	require.NoError(t, err)
	statuses := map[models.OverlayKind]models.OverlayStatus{}
	for _, o := range history {
		statuses[o.Kind] = o.Status
	}
	assert.Equal(t, models.OverlayRejected, statuses[models.OverlayEdit])
	assert.Equal(t, models.OverlayApproved, statuses[models.OverlayDeletion])
	assert.Equal(t, models.StatusDeleted, h.point(point.ID).Status)
}

func TestRejectDeletionKeepsPoint(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.RequestDeletion(h.ctx, alice, services.RequestDeletionRequest{PointID: point.ID})
	require.NoError(t, err)
	overlay, err := h.engine.RejectDeletion(h.ctx, moderator, services.RejectDeletionRequest{PointID: point.ID, Reason: "still open"})
	require.NoError(t, err)
	assert.Equal(t, models.OverlayRejected, overlay.Status)
	assert.Equal(t, models.StatusPublished, h.point(point.ID).Status)

	_, err = h.engine.ApproveDeletion(h.ctx, moderator, services.ApproveDeletionRequest{PointID: point.ID})
	requireKind(t, err, services.KindInvalidTransition)
}

func TestResolvedReportGracePeriodAndPurge(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, reportAt(baseLat, baseLng, "oswietlenie"))
	start := h.clock.Now()

	resolved, err := h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: point.ID, Status: models.ReportResolved})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedDeleteAt)
	assert.WithinDuration(t, start.Add(7*24*time.Hour), *resolved.ResolvedDeleteAt, time.Second)

	// resolving again keeps the original date
	h.clock.Advance(time.Hour)
	again, err := h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: point.ID, Status: models.ReportResolved})
	require.NoError(t, err)
	assert.True(t, resolved.ResolvedDeleteAt.Equal(*again.ResolvedDeleteAt))

	h.clock.Advance(3 * 24 * time.Hour)
	result, err := h.engine.PurgeExpired(h.ctx, services.SystemActor(), services.PurgeExpiredRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.Purged)
	assert.Equal(t, models.StatusPublished, h.point(point.ID).Status)

	h.clock.Advance(5 * 24 * time.Hour)
	result, err = h.engine.PurgeExpired(h.ctx, services.SystemActor(), services.PurgeExpiredRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{point.ID}, result.Purged)
	assert.Equal(t, models.StatusDeleted, h.point(point.ID).Status)

	result, err = h.engine.PurgeExpired(h.ctx, services.SystemActor(), services.PurgeExpiredRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.Purged)
}

func TestLeavingResolvedCancelsPurge(t *testing.T) {
	h := newHarness(t)
	point := h.published(alice, reportAt(baseLat, baseLng, "oswietlenie"))
	_, err := h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: point.ID, Status: models.ReportResolved})
	require.NoError(t, err)
	reopened, err := h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: point.ID, Status: models.ReportNeedsBetterDocumentation})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedDeleteAt)

	h.clock.Advance(30 * 24 * time.Hour)
	result, err := h.engine.PurgeExpired(h.ctx, moderator, services.PurgeExpiredRequest{})
	require.NoError(t, err)
	assert.Empty(t, result.Purged)
}

func TestChangeReportStatusValidation(t *testing.T) {
	h := newHarness(t)
	place := h.published(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: place.ID, Status: models.ReportResolved})
	requireKind(t, err, services.KindValidation)

	report := h.published(alice, reportAt(baseLat, baseLng, "graffiti"))
	_, err = h.engine.ChangeReportStatus(h.ctx, moderator, services.ChangeReportStatusRequest{PointID: report.ID, Status: "closed"})
	requireKind(t, err, services.KindValidation)
	_, err = h.engine.ChangeReportStatus(h.ctx, alice, services.ChangeReportStatusRequest{PointID: report.ID, Status: models.ReportResolved})
	requireKind(t, err, services.KindForbidden)
}
