package services

import (
	"context"
	"fmt"

	"citymap-backend-go/internal/models"

	"github.com/google/uuid"
)

type SubmitRequest struct {
	ContentClass models.ContentClass `json:"contentClass"`
	Category     string              `json:"category,omitempty"`
	Title        string              `json:"title"`
	Content      string              `json:"content"`
	Lat          float64             `json:"lat"`
	Lng          float64             `json:"lng"`
	Address      *string             `json:"address,omitempty"`
	Website      *string             `json:"website,omitempty"`
	Phone        *string             `json:"phone,omitempty"`
	// SkipDuplicateCheck is honoured for moderators only.
	SkipDuplicateCheck bool `json:"skipDuplicateCheck,omitempty"`
}

func submitRestrictions(class models.ContentClass) []RestrictionCategory {
	if class == models.ClassCuriosity {
		return []RestrictionCategory{RestrictAddPlaces, RestrictAddTrivia}
	}
	return []RestrictionCategory{RestrictAddPlaces}
}

func (e *Engine) validateSubmit(req SubmitRequest) (models.Point, error) {
	class, err := ParseContentClass(string(req.ContentClass))
	if err != nil {
		return models.Point{}, err
	}
	title, err := validateTitle(req.Title)
	if err != nil {
		return models.Point{}, err
	}
	if err := validateCoordinates(req.Lat, req.Lng); err != nil {
		return models.Point{}, err
	}
	var category *string
	if class == models.ClassReport {
		category = optional(&req.Category)
	} else if optional(&req.Category) != nil {
		return models.Point{}, ErrValidation("Only reports have a category")
	}
	if err := validateCategory(class, category); err != nil {
		return models.Point{}, err
	}
	point := models.Point{
		ContentClass: class,
		Category:     category,
		Title:        title,
		Content:      CleanText(req.Content),
		Lat:          req.Lat,
		Lng:          req.Lng,
		Address:      optional(req.Address),
		Website:      optional(req.Website),
		Phone:        optional(req.Phone),
	}
	if err := validateWebsite(point.Website); err != nil {
		return models.Point{}, err
	}
	if err := validatePhone(point.Phone); err != nil {
		return models.Point{}, err
	}
	return point, nil
}

// Submit creates a point. Guard, quota, duplicate check and insert share one
// unit of work so a failure at any step leaves no trace.
func (e *Engine) Submit(ctx context.Context, actor Actor, req SubmitRequest) (models.Point, error) {
	point, err := e.validateSubmit(req)
	if err != nil {
		return models.Point{}, err
	}
	err = e.write(ctx, OpSubmit, func(tx Tx, u *unit) error {
		if err := e.guard(ctx, tx, actor, submitRestrictions(point.ContentClass)...); err != nil {
			return err
		}
		if err := e.checkAndConsume(ctx, tx, actor, QuotaClassFor(point.ContentClass)); err != nil {
			return err
		}
		if !(actor.IsModerator() && req.SkipDuplicateCheck) {
			candidate := Candidate{Lat: point.Lat, Lng: point.Lng, ContentClass: point.ContentClass}
			if point.Category != nil {
				candidate.Category = *point.Category
			}
			existing, err := e.findDuplicate(ctx, tx, candidate)
			if err != nil {
				return err
			}
			if existing != nil {
				return ErrDuplicate(existing.ID)
			}
		}
		now := e.now()
		point.ID = uuid.NewString()
		point.AuthorID = actor.UserID
		point.CreatedAt = now
		point.UpdatedAt = now
		point.Status = models.StatusPendingReview
		if actor.IsModerator() {
			point.Status = models.StatusPublished
		}
		if point.ContentClass == models.ClassReport {
			number, err := tx.NextCaseNumber(ctx)
			if err != nil {
				return err
			}
			status := models.ReportAdded
			point.CaseNumber = &number
			point.CaseID = strPtr(FormatCaseID(e.policy.CaseIDPrefix, number))
			point.ReportStatus = &status
		}
		if err := tx.InsertPoint(ctx, point); err != nil {
			return err
		}
		u.emit(e.event(EventPointSubmitted, actor, point.ID, map[string]interface{}{
			"status":       point.Status,
			"contentClass": point.ContentClass,
		}))
		return nil
	})
	if err != nil {
		return models.Point{}, err
	}
	return point, nil
}

func FormatCaseID(prefix string, number int64) string {
	return fmt.Sprintf("%s-%06d", prefix, number)
}

type ApproveRequest struct {
	PointID string `json:"pointId"`
}

type RejectRequest struct {
	PointID string `json:"pointId"`
	Reason  string `json:"reason,omitempty"`
}

type ApproveEditRequest struct {
	PointID string `json:"pointId"`
}

type RejectEditRequest struct {
	PointID string `json:"pointId"`
	Reason  string `json:"reason,omitempty"`
}

type ApproveDeletionRequest struct {
	PointID string `json:"pointId"`
}

type RejectDeletionRequest struct {
	PointID string `json:"pointId"`
	Reason  string `json:"reason,omitempty"`
}

func (e *Engine) Approve(ctx context.Context, actor Actor, req ApproveRequest) (models.Point, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Point{}, err
	}
	var point models.Point
	err := e.write(ctx, OpApprove, func(tx Tx, u *unit) error {
		var err error
		point, err = e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.Status != models.StatusPendingReview {
			return ErrInvalidTransition("Point is not awaiting review")
		}
		point.Status = models.StatusPublished
		point.UpdatedAt = e.now()
		if point.ReportsCount > 0 {
			if err := tx.ClearFlags(ctx, point.ID); err != nil {
				return err
			}
			point.ReportsCount = 0
		}
		if err := tx.UpdatePoint(ctx, point); err != nil {
			return err
		}
		u.emit(e.event(EventPointApproved, actor, point.ID, nil))
		return e.record(ctx, tx, actor, "approve_point", "point", point.ID, point.Title)
	})
	return point, err
}

func (e *Engine) Reject(ctx context.Context, actor Actor, req RejectRequest) (models.Point, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Point{}, err
	}
	var point models.Point
	err := e.write(ctx, OpReject, func(tx Tx, u *unit) error {
		var err error
		point, err = e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.Status != models.StatusPendingReview {
			return ErrInvalidTransition("Point is not awaiting review")
		}
		if err := e.rejectPending(ctx, tx, u, actor, &point, req.Reason); err != nil {
			return err
		}
		return e.record(ctx, tx, actor, "reject_point", "point", point.ID, req.Reason)
	})
	return point, err
}

func (e *Engine) rejectPending(ctx context.Context, tx Tx, u *unit, actor Actor, point *models.Point, reason string) error {
	point.Status = models.StatusRejected
	point.UpdatedAt = e.now()
	if err := tx.UpdatePoint(ctx, *point); err != nil {
		return err
	}
	if err := e.refund(ctx, tx, *point); err != nil {
		return err
	}
	u.emit(e.event(EventPointRejected, actor, point.ID, map[string]interface{}{"reason": reason, "authorId": point.AuthorID}))
	return nil
}

type ProposeEditRequest struct {
	PointID string             `json:"pointId"`
	Fields  models.PointFields `json:"fields"`
	Reason  string             `json:"reason,omitempty"`
	// Immediate applies the edit at once. Moderators only.
	Immediate bool `json:"immediate,omitempty"`
}

func (e *Engine) ProposeEdit(ctx context.Context, actor Actor, req ProposeEditRequest) (models.Overlay, error) {
	if req.Immediate {
		if err := e.requireModerator(actor); err != nil {
			return models.Overlay{}, err
		}
	}
	var overlay models.Overlay
	err := e.write(ctx, OpProposeEdit, func(tx Tx, u *unit) error {
		var err error
		overlay, err = e.proposeEdit(ctx, tx, u, actor, req, false)
		if err != nil || !req.Immediate {
			return err
		}
		_, overlay, err = e.approveEdit(ctx, tx, u, actor, req.PointID)
		return err
	})
	return overlay, err
}

func (e *Engine) proposeEdit(ctx context.Context, tx Tx, u *unit, actor Actor, req ProposeEditRequest, clearReports bool) (models.Overlay, error) {
	if err := e.guard(ctx, tx, actor, RestrictEditPlaces); err != nil {
		return models.Overlay{}, err
	}
	point, err := e.loadPoint(ctx, tx, req.PointID)
	if err != nil {
		return models.Overlay{}, err
	}
	if point.Status != models.StatusPublished {
		return models.Overlay{}, ErrInvalidTransition("Only published points can be edited")
	}
	if point.AuthorID != actor.UserID && !actor.IsModerator() {
		return models.Overlay{}, ErrForbidden("Only the author can edit this point")
	}
	pending, err := e.activeOverlay(ctx, tx, point.ID, models.OverlayEdit)
	if err != nil {
		return models.Overlay{}, err
	}
	if pending != nil {
		return models.Overlay{}, ErrInvalidTransition("An edit is already awaiting review")
	}
	if !actor.IsModerator() {
		deletion, err := e.activeOverlay(ctx, tx, point.ID, models.OverlayDeletion)
		if err != nil {
			return models.Overlay{}, err
		}
		if deletion != nil {
			return models.Overlay{}, ErrInvalidTransition("Point is awaiting deletion")
		}
	}
	current := snapshotFields(point)
	changes := diffFields(current, cleanFields(req.Fields))
	if changes.Empty() {
		return models.Overlay{}, ErrValidation("No changes proposed")
	}
	if err := e.validateEdit(point.ContentClass, mergeFields(current, changes)); err != nil {
		return models.Overlay{}, err
	}
	overlay := newOverlay(point.ID, actor.UserID, EditChange{Prev: current, Next: changes}, req.Reason, e.now())
	overlay.ClearReportsOnApproval = clearReports
	if err := tx.InsertOverlay(ctx, overlay); err != nil {
		return models.Overlay{}, err
	}
	u.emit(e.event(EventEditSubmitted, actor, point.ID, map[string]interface{}{"overlayId": overlay.ID}))
	return overlay, nil
}

func (e *Engine) validateEdit(class models.ContentClass, merged models.PointFields) error {
	if merged.Title == nil {
		return ErrValidation("Title is required")
	}
	if _, err := validateTitle(*merged.Title); err != nil {
		return err
	}
	if merged.Lat == nil || merged.Lng == nil {
		return ErrValidation("Location is required")
	}
	if err := validateCoordinates(*merged.Lat, *merged.Lng); err != nil {
		return err
	}
	if err := validateCategory(class, optional(merged.Category)); err != nil {
		return err
	}
	if err := validateWebsite(optional(merged.Website)); err != nil {
		return err
	}
	return validatePhone(optional(merged.Phone))
}

func (e *Engine) ApproveEdit(ctx context.Context, actor Actor, req ApproveEditRequest) (models.Point, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Point{}, err
	}
	var point models.Point
	err := e.write(ctx, OpApproveEdit, func(tx Tx, u *unit) error {
		var err error
		point, _, err = e.approveEdit(ctx, tx, u, actor, req.PointID)
		return err
	})
	return point, err
}

// approveEdit copies the overlay's new fields onto the point and retires the
// overlay in the same unit of work.
func (e *Engine) approveEdit(ctx context.Context, tx Tx, u *unit, actor Actor, pointID string) (models.Point, models.Overlay, error) {
	point, err := e.loadPoint(ctx, tx, pointID)
	if err != nil {
		return models.Point{}, models.Overlay{}, err
	}
	overlay, err := e.activeOverlay(ctx, tx, pointID, models.OverlayEdit)
	if err != nil {
		return models.Point{}, models.Overlay{}, err
	}
	if overlay == nil {
		return models.Point{}, models.Overlay{}, ErrInvalidTransition("No edit is awaiting review")
	}
	now := e.now()
	if err := resolveOverlay(overlay, models.OverlayApproved, actor.UserID, "", now); err != nil {
		return models.Point{}, models.Overlay{}, err
	}
	applyFields(&point, overlay.NewFields)
	point.UpdatedAt = now
	if overlay.ClearReportsOnApproval {
		if err := e.clearReports(ctx, tx, &point); err != nil {
			return models.Point{}, models.Overlay{}, err
		}
	}
	if err := tx.UpdatePoint(ctx, point); err != nil {
		return models.Point{}, models.Overlay{}, err
	}
	if err := tx.UpdateOverlay(ctx, *overlay); err != nil {
		return models.Point{}, models.Overlay{}, err
	}
	u.emit(e.event(EventEditApproved, actor, point.ID, map[string]interface{}{"overlayId": overlay.ID}))
	if err := e.record(ctx, tx, actor, "approve_edit", "point", point.ID, point.Title); err != nil {
		return models.Point{}, models.Overlay{}, err
	}
	return point, *overlay, nil
}

func (e *Engine) RejectEdit(ctx context.Context, actor Actor, req RejectEditRequest) (models.Overlay, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Overlay{}, err
	}
	var result models.Overlay
	err := e.write(ctx, OpRejectEdit, func(tx Tx, u *unit) error {
		if _, err := e.loadPoint(ctx, tx, req.PointID); err != nil {
			return err
		}
		overlay, err := e.activeOverlay(ctx, tx, req.PointID, models.OverlayEdit)
		if err != nil {
			return err
		}
		if overlay == nil {
			return ErrInvalidTransition("No edit is awaiting review")
		}
		if err := resolveOverlay(overlay, models.OverlayRejected, actor.UserID, req.Reason, e.now()); err != nil {
			return err
		}
		if err := tx.UpdateOverlay(ctx, *overlay); err != nil {
			return err
		}
		result = *overlay
		u.emit(e.event(EventEditRejected, actor, req.PointID, map[string]interface{}{"overlayId": overlay.ID, "reason": req.Reason}))
		return e.record(ctx, tx, actor, "reject_edit", "point", req.PointID, req.Reason)
	})
	return result, err
}

type RequestDeletionRequest struct {
	PointID string `json:"pointId"`
	Reason  string `json:"reason,omitempty"`
	// Immediate deletes at once. Moderators only.
	Immediate bool `json:"immediate,omitempty"`
}

func (e *Engine) RequestDeletion(ctx context.Context, actor Actor, req RequestDeletionRequest) (models.Overlay, error) {
	if req.Immediate {
		if err := e.requireModerator(actor); err != nil {
			return models.Overlay{}, err
		}
	}
	var overlay models.Overlay
	err := e.write(ctx, OpRequestDeletion, func(tx Tx, u *unit) error {
		if err := e.guard(ctx, tx, actor, RestrictEditPlaces); err != nil {
			return err
		}
		point, err := e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.Status != models.StatusPublished {
			return ErrInvalidTransition("Only published points can be deleted")
		}
		if point.AuthorID != actor.UserID && !actor.IsModerator() {
			return ErrForbidden("Only the author can request deletion")
		}
		existing, err := e.activeOverlay(ctx, tx, point.ID, models.OverlayDeletion)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrInvalidTransition("Deletion is already awaiting review")
		}
		overlay = newOverlay(point.ID, actor.UserID, DeletionChange{Reason: CleanLine(req.Reason)}, "", e.now())
		if err := tx.InsertOverlay(ctx, overlay); err != nil {
			return err
		}
		u.emit(e.event(EventDeletionRequested, actor, point.ID, map[string]interface{}{"overlayId": overlay.ID}))
		if !req.Immediate {
			return nil
		}
		overlay, err = e.approveDeletion(ctx, tx, u, actor, point.ID)
		return err
	})
	return overlay, err
}

func (e *Engine) ApproveDeletion(ctx context.Context, actor Actor, req ApproveDeletionRequest) (models.Point, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Point{}, err
	}
	var point models.Point
	err := e.write(ctx, OpApproveDeletion, func(tx Tx, u *unit) error {
		if _, err := e.approveDeletion(ctx, tx, u, actor, req.PointID); err != nil {
			return err
		}
		var err error
		point, err = e.loadPoint(ctx, tx, req.PointID)
		return err
	})
	return point, err
}

func (e *Engine) approveDeletion(ctx context.Context, tx Tx, u *unit, actor Actor, pointID string) (models.Overlay, error) {
	point, err := e.loadPoint(ctx, tx, pointID)
	if err != nil {
		return models.Overlay{}, err
	}
	overlay, err := e.activeOverlay(ctx, tx, pointID, models.OverlayDeletion)
	if err != nil {
		return models.Overlay{}, err
	}
	if overlay == nil {
		return models.Overlay{}, ErrInvalidTransition("No deletion is awaiting review")
	}
	if err := resolveOverlay(overlay, models.OverlayApproved, actor.UserID, "", e.now()); err != nil {
		return models.Overlay{}, err
	}
	if err := tx.UpdateOverlay(ctx, *overlay); err != nil {
		return models.Overlay{}, err
	}
	if err := e.deletePoint(ctx, tx, u, actor, &point, "deletion approved"); err != nil {
		return models.Overlay{}, err
	}
	if err := e.refund(ctx, tx, point); err != nil {
		return models.Overlay{}, err
	}
	return *overlay, e.record(ctx, tx, actor, "approve_deletion", "point", point.ID, point.Title)
}

// deletePoint is the single path into the deleted state. It drops votes and
// flags and closes any pending edit.
func (e *Engine) deletePoint(ctx context.Context, tx Tx, u *unit, actor Actor, point *models.Point, reason string) error {
	if point.Status == models.StatusDeleted {
		return ErrInvalidTransition("Point is already deleted")
	}
	now := e.now()
	edit, err := e.activeOverlay(ctx, tx, point.ID, models.OverlayEdit)
	if err != nil {
		return err
	}
	if edit != nil {
		if err := resolveOverlay(edit, models.OverlayRejected, actor.UserID, "point deleted", now); err != nil {
			return err
		}
		if err := tx.UpdateOverlay(ctx, *edit); err != nil {
			return err
		}
	}
	if err := tx.PurgeInteractions(ctx, point.ID); err != nil {
		return err
	}
	point.Status = models.StatusDeleted
	point.DeletedAt = timePtr(now)
	point.ResolvedDeleteAt = nil
	point.VotesCount = 0
	point.ReportsCount = 0
	point.UpdatedAt = now
	if err := tx.UpdatePoint(ctx, *point); err != nil {
		return err
	}
	u.emit(e.event(EventPointDeleted, actor, point.ID, map[string]interface{}{"reason": reason}))
	return nil
}

func (e *Engine) RejectDeletion(ctx context.Context, actor Actor, req RejectDeletionRequest) (models.Overlay, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Overlay{}, err
	}
	var result models.Overlay
	err := e.write(ctx, OpRejectDeletion, func(tx Tx, u *unit) error {
		if _, err := e.loadPoint(ctx, tx, req.PointID); err != nil {
			return err
		}
		overlay, err := e.activeOverlay(ctx, tx, req.PointID, models.OverlayDeletion)
		if err != nil {
			return err
		}
		if overlay == nil {
			return ErrInvalidTransition("No deletion is awaiting review")
		}
		if err := resolveOverlay(overlay, models.OverlayRejected, actor.UserID, req.Reason, e.now()); err != nil {
			return err
		}
		if err := tx.UpdateOverlay(ctx, *overlay); err != nil {
			return err
		}
		result = *overlay
		u.emit(e.event(EventDeletionRejected, actor, req.PointID, map[string]interface{}{"reason": req.Reason}))
		return e.record(ctx, tx, actor, "reject_deletion", "point", req.PointID, req.Reason)
	})
	return result, err
}

type ChangeReportStatusRequest struct {
	PointID string              `json:"pointId"`
	Status  models.ReportStatus `json:"status"`
}

// ChangeReportStatus allows any move between report statuses. Entering
// resolved starts the grace period; leaving it cancels the scheduled purge.
func (e *Engine) ChangeReportStatus(ctx context.Context, actor Actor, req ChangeReportStatusRequest) (models.Point, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.Point{}, err
	}
	status, err := ParseReportStatus(string(req.Status))
	if err != nil {
		return models.Point{}, err
	}
	var point models.Point
	err = e.write(ctx, OpChangeReportStatus, func(tx Tx, u *unit) error {
		var err error
		point, err = e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.ContentClass != models.ClassReport {
			return ErrValidation("Only reports have a report status")
		}
		if point.Status == models.StatusDeleted {
			return ErrInvalidTransition("Point is deleted")
		}
		e.setReportStatus(&point, status)
		point.UpdatedAt = e.now()
		if err := tx.UpdatePoint(ctx, point); err != nil {
			return err
		}
		u.emit(e.event(EventReportStatusChanged, actor, point.ID, map[string]interface{}{"status": status}))
		return e.record(ctx, tx, actor, "change_report_status", "point", point.ID, string(status))
	})
	return point, err
}

func (e *Engine) setReportStatus(point *models.Point, status models.ReportStatus) {
	wasResolved := point.ReportStatus != nil && *point.ReportStatus == models.ReportResolved
	point.ReportStatus = &status
	switch {
	case status != models.ReportResolved:
		point.ResolvedDeleteAt = nil
	case !wasResolved || point.ResolvedDeleteAt == nil:
		point.ResolvedDeleteAt = timePtr(e.now().Add(e.policy.ResolvedGrace))
	}
}
