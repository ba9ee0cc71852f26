package services

import (
	"context"
	"math"

	"citymap-backend-go/internal/models"
)

const earthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// boundingBox is a coarse prefilter around a point. It is widened slightly
// so that the exact distance check decides every edge.
func boundingBox(lat, lng, radius float64) (minLat, maxLat, minLng, maxLng float64) {
	dLat := (radius / earthRadiusMeters) * 180 / math.Pi * 1.01
	cos := math.Cos(toRadians(lat))
	dLng := 180.0
	if cos > 1e-9 {
		dLng = math.Min(180, dLat/cos)
	}
	return lat - dLat, lat + dLat, lng - dLng, lng + dLng
}

// Candidate is the location and classification of a would-be point.
type Candidate struct {
	Lat          float64
	Lng          float64
	ContentClass models.ContentClass
	Category     string
}

func compatible(c Candidate, p models.Point) bool {
	if p.ContentClass != c.ContentClass {
		return false
	}
	if c.ContentClass != models.ClassReport {
		return true
	}
	return p.Category != nil && *p.Category == c.Category
}

func duplicateKey(c Candidate) string {
	if c.ContentClass == models.ClassReport {
		return string(c.ContentClass) + ":" + c.Category
	}
	return string(c.ContentClass)
}

// Nearest picks the closest compatible point within radius meters.
func Nearest(c Candidate, points []models.Point, radius float64) (*models.Point, float64) {
	var best *models.Point
	bestDistance := math.Inf(1)
	for i := range points {
		p := points[i]
		if p.Status == models.StatusDeleted || !compatible(c, p) {
			continue
		}
		distance := Haversine(c.Lat, c.Lng, p.Lat, p.Lng)
		if distance <= radius && distance < bestDistance {
			best = &points[i]
			bestDistance = distance
		}
	}
	return best, bestDistance
}

// findDuplicate serializes submissions of the same compatibility bucket
// before looking, so two concurrent near-identical submissions cannot both
// pass the check.
func (e *Engine) findDuplicate(ctx context.Context, tx Tx, c Candidate) (*models.Point, error) {
	if err := tx.SerializeSubmissions(ctx, duplicateKey(c)); err != nil {
		return nil, err
	}
	minLat, maxLat, minLng, maxLng := boundingBox(c.Lat, c.Lng, e.policy.DuplicateRadiusMeters)
	points, err := tx.NearbyPoints(ctx, NearbyQuery{
		MinLat:       minLat,
		MaxLat:       maxLat,
		MinLng:       minLng,
		MaxLng:       maxLng,
		ContentClass: c.ContentClass,
		Category:     c.Category,
		Statuses:     []models.PointStatus{models.StatusPendingReview, models.StatusPublished},
	})
	if err != nil {
		return nil, err
	}
	nearest, _ := Nearest(c, points, e.policy.DuplicateRadiusMeters)
	return nearest, nil
}
