package services_test

import (
	"testing"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Warsaw to Krakow
	d := services.Haversine(52.2297, 21.0122, 50.0647, 19.9450)
	assert.InDelta(t, 252000, d, 2000)
	assert.Zero(t, services.Haversine(baseLat, baseLng, baseLat, baseLng))
}

func TestNearestThresholdIsInclusive(t *testing.T) {
	category := "dziura_w_jezdni"
	existing := models.Point{
		ID:           "p1",
		ContentClass: models.ClassReport,
		Category:     &category,
		Status:       models.StatusPublished,
		Lat:          baseLat + twelveMeters,
		Lng:          baseLng,
	}
	c := services.Candidate{Lat: baseLat, Lng: baseLng, ContentClass: models.ClassReport, Category: category}
	distance := services.Haversine(c.Lat, c.Lng, existing.Lat, existing.Lng)
	require.InDelta(t, 12, distance, 0.5)

	match, got := services.Nearest(c, []models.Point{existing}, distance)
	require.NotNil(t, match)
	assert.Equal(t, "p1", match.ID)
	assert.Equal(t, distance, got)

	match, _ = services.Nearest(c, []models.Point{existing}, distance-0.01)
	assert.Nil(t, match)
}

func TestNearestSkipsIncompatiblePoints(t *testing.T) {
	pothole := "dziura_w_jezdni"
	graffiti := "graffiti"
	points := []models.Point{
		{ID: "other-category", ContentClass: models.ClassReport, Category: &graffiti, Status: models.StatusPublished, Lat: baseLat, Lng: baseLng},
		{ID: "deleted", ContentClass: models.ClassReport, Category: &pothole, Status: models.StatusDeleted, Lat: baseLat, Lng: baseLng},
		{ID: "place", ContentClass: models.ClassPlace, Status: models.StatusPublished, Lat: baseLat, Lng: baseLng},
	}
	c := services.Candidate{Lat: baseLat, Lng: baseLng, ContentClass: models.ClassReport, Category: pothole}
	match, _ := services.Nearest(c, points, 50)
	assert.Nil(t, match)
}

func TestNearestPicksClosest(t *testing.T) {
	points := []models.Point{
		{ID: "far", ContentClass: models.ClassPlace, Status: models.StatusPublished, Lat: baseLat + 3*twelveMeters, Lng: baseLng},
		{ID: "near", ContentClass: models.ClassPlace, Status: models.StatusPendingReview, Lat: baseLat + twelveMeters, Lng: baseLng},
	}
	c := services.Candidate{Lat: baseLat, Lng: baseLng, ContentClass: models.ClassPlace}
	match, _ := services.Nearest(c, points, 50)
	require.NotNil(t, match)
	assert.Equal(t, "near", match.ID)
}

func TestSubmitRejectsDuplicateWithinRadius(t *testing.T) {
	h := newHarness(t)
	first := h.submit(alice, reportAt(baseLat, baseLng, "dziura_w_jezdni"))

	_, err := h.engine.Submit(h.ctx, bob, reportAt(baseLat+twelveMeters, baseLng, "dziura_w_jezdni"))
	serr := requireKind(t, err, services.KindDuplicate)
	assert.Equal(t, first.ID, serr.ExistingPointID)

	// a different category at the same spot is not a duplicate
	h.submit(bob, reportAt(baseLat+twelveMeters, baseLng, "graffiti"))
	// the failed submission did not consume bob's quota
	assert.Equal(t, 4, h.limits(bob).Reports)
}

func TestSubmitIgnoresRejectedAndDistantPoints(t *testing.T) {
	h := newHarness(t)
	first := h.submit(alice, placeAt(baseLat, baseLng))
	_, err := h.engine.Reject(h.ctx, moderator, services.RejectRequest{PointID: first.ID, Reason: "spam"})
	require.NoError(t, err)

	h.submit(bob, placeAt(baseLat+twelveMeters, baseLng))
	h.submit(bob, placeAt(baseLat+10*twelveMeters, baseLng))
}

func TestModeratorMaySkipDuplicateCheck(t *testing.T) {
	h := newHarness(t)
	h.submit(alice, placeAt(baseLat, baseLng))

	req := placeAt(baseLat+twelveMeters, baseLng)
	req.SkipDuplicateCheck = true
	_, err := h.engine.Submit(h.ctx, bob, req)
	requireKind(t, err, services.KindDuplicate)

	point := h.submit(moderator, req)
	assert.Equal(t, models.StatusPublished, point.Status)
}
