package services

import (
	"time"

	"citymap-backend-go/internal/models"

	"github.com/google/uuid"
)

// PendingChange is the proposal carried by an overlay: either an EditChange
// or a DeletionChange.
type PendingChange interface {
	Kind() models.OverlayKind
}

type EditChange struct {
	Prev models.PointFields
	Next models.PointFields
}

func (EditChange) Kind() models.OverlayKind { return models.OverlayEdit }

type DeletionChange struct {
	Reason string
}

func (DeletionChange) Kind() models.OverlayKind { return models.OverlayDeletion }

// ChangeOf decodes the stored overlay row into its variant.
func ChangeOf(o models.Overlay) PendingChange {
	if o.Kind == models.OverlayDeletion {
		reason := ""
		if o.Reason != nil {
			reason = *o.Reason
		}
		return DeletionChange{Reason: reason}
	}
	return EditChange{Prev: o.PrevFields, Next: o.NewFields}
}

func newOverlay(pointID, requestedBy string, change PendingChange, reason string, now time.Time) models.Overlay {
	overlay := models.Overlay{
		ID:          uuid.NewString(),
		PointID:     pointID,
		Kind:        change.Kind(),
		Status:      models.OverlayPending,
		RequestedBy: requestedBy,
		SubmittedAt: now,
	}
	switch c := change.(type) {
	case EditChange:
		overlay.PrevFields = c.Prev
		overlay.NewFields = c.Next
		if reason != "" {
			overlay.Reason = strPtr(reason)
		}
	case DeletionChange:
		if c.Reason != "" {
			overlay.Reason = strPtr(c.Reason)
		}
	}
	return overlay
}

// resolveOverlay is the only transition an overlay has: pending to
// approved or rejected.
func resolveOverlay(o *models.Overlay, to models.OverlayStatus, by string, reason string, now time.Time) error {
	if o.Status != models.OverlayPending {
		return ErrInvalidTransition("Change was already resolved")
	}
	if to != models.OverlayApproved && to != models.OverlayRejected {
		return ErrInvalidTransition("Unknown change resolution")
	}
	o.Status = to
	o.ResolvedBy = strPtr(by)
	o.ResolvedAt = timePtr(now)
	o.ResolutionReason = nil
	if reason != "" {
		o.ResolutionReason = strPtr(reason)
	}
	return nil
}

// snapshotFields copies the full public content of a point.
func snapshotFields(p models.Point) models.PointFields {
	lat, lng := p.Lat, p.Lng
	f := models.PointFields{
		Title:   strPtr(p.Title),
		Content: strPtr(p.Content),
		Lat:     &lat,
		Lng:     &lng,
	}
	if p.Category != nil {
		f.Category = strPtr(*p.Category)
	}
	if p.Address != nil {
		f.Address = strPtr(*p.Address)
	}
	if p.Website != nil {
		f.Website = strPtr(*p.Website)
	}
	if p.Phone != nil {
		f.Phone = strPtr(*p.Phone)
	}
	return f
}

func sameString(current, proposed *string) bool {
	if proposed == nil {
		return true
	}
	if current == nil {
		return *proposed == ""
	}
	return *current == *proposed
}

func sameFloat(current, proposed *float64) bool {
	return proposed == nil || (current != nil && *current == *proposed)
}

// diffFields keeps only the proposed fields that differ from current.
func diffFields(current, proposed models.PointFields) models.PointFields {
	var out models.PointFields
	if !sameString(current.Title, proposed.Title) {
		out.Title = proposed.Title
	}
	if !sameString(current.Content, proposed.Content) {
		out.Content = proposed.Content
	}
	if !sameString(current.Category, proposed.Category) {
		out.Category = proposed.Category
	}
	if !sameFloat(current.Lat, proposed.Lat) {
		out.Lat = proposed.Lat
	}
	if !sameFloat(current.Lng, proposed.Lng) {
		out.Lng = proposed.Lng
	}
	if !sameString(current.Address, proposed.Address) {
		out.Address = proposed.Address
	}
	if !sameString(current.Website, proposed.Website) {
		out.Website = proposed.Website
	}
	if !sameString(current.Phone, proposed.Phone) {
		out.Phone = proposed.Phone
	}
	return out
}

// mergeFields overlays f on top of base.
func mergeFields(base, f models.PointFields) models.PointFields {
	out := base
	if f.Title != nil {
		out.Title = f.Title
	}
	if f.Content != nil {
		out.Content = f.Content
	}
	if f.Category != nil {
		out.Category = f.Category
	}
	if f.Lat != nil {
		out.Lat = f.Lat
	}
	if f.Lng != nil {
		out.Lng = f.Lng
	}
	if f.Address != nil {
		out.Address = f.Address
	}
	if f.Website != nil {
		out.Website = f.Website
	}
	if f.Phone != nil {
		out.Phone = f.Phone
	}
	return out
}

func applyFields(p *models.Point, f models.PointFields) {
	if f.Title != nil {
		p.Title = *f.Title
	}
	if f.Content != nil {
		p.Content = *f.Content
	}
	if f.Category != nil {
		p.Category = strPtr(*f.Category)
	}
	if f.Lat != nil {
		p.Lat = *f.Lat
	}
	if f.Lng != nil {
		p.Lng = *f.Lng
	}
	if f.Address != nil {
		p.Address = optional(f.Address)
	}
	if f.Website != nil {
		p.Website = optional(f.Website)
	}
	if f.Phone != nil {
		p.Phone = optional(f.Phone)
	}
}
