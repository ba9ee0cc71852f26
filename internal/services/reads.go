package services

import (
	"context"
	"errors"

	"citymap-backend-go/internal/models"
)

// PointView is the read snapshot handed to presentation layers. Overlays
// are only filled in for moderators and the author.
type PointView struct {
	Point           models.Point          `json:"point"`
	Verification    Verification          `json:"verification,omitempty"`
	MyVote          *models.VoteDirection `json:"myVote,omitempty"`
	PendingEdit     *models.Overlay       `json:"pendingEdit,omitempty"`
	PendingDeletion *models.Overlay       `json:"pendingDeletion,omitempty"`
}

func canSee(actor Actor, p models.Point) bool {
	if actor.IsModerator() {
		return true
	}
	if p.Status == models.StatusPublished {
		return true
	}
	return p.Status != models.StatusDeleted && !actor.Anonymous() && p.AuthorID == actor.UserID
}

func (e *Engine) pointView(ctx context.Context, tx Tx, actor Actor, p models.Point) (PointView, error) {
	view := PointView{Point: p, Verification: Verify(p.VotesCount, e.policy.VerificationVotes)}
	if !actor.Anonymous() {
		vote, err := tx.GetVote(ctx, p.ID, actor.UserID)
		switch {
		case err == nil:
			direction := vote.Direction
			view.MyVote = &direction
		case !errors.Is(err, ErrRecordNotFound):
			return PointView{}, err
		}
	}
	if actor.IsModerator() || (!actor.Anonymous() && p.AuthorID == actor.UserID) {
		edit, err := e.activeOverlay(ctx, tx, p.ID, models.OverlayEdit)
		if err != nil {
			return PointView{}, err
		}
		deletion, err := e.activeOverlay(ctx, tx, p.ID, models.OverlayDeletion)
		if err != nil {
			return PointView{}, err
		}
		view.PendingEdit = edit
		view.PendingDeletion = deletion
	}
	return view, nil
}

type GetPointRequest struct {
	PointID string `json:"pointId"`
}

func (e *Engine) GetPoint(ctx context.Context, actor Actor, req GetPointRequest) (PointView, error) {
	var view PointView
	err := e.read(ctx, OpGetPoint, func(tx Tx) error {
		point, err := e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if !canSee(actor, point) {
			return ErrNotFound("Point not found")
		}
		view, err = e.pointView(ctx, tx, actor, point)
		return err
	})
	return view, err
}

type ListPointsRequest struct {
	ContentClass models.ContentClass  `json:"contentClass,omitempty"`
	Category     string               `json:"category,omitempty"`
	Statuses     []models.PointStatus `json:"statuses,omitempty"`
	AuthorID     string               `json:"authorId,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	Offset       int                  `json:"offset,omitempty"`
}

// ListPoints returns published points. Moderators may ask for any status;
// other callers may list their own submissions.
func (e *Engine) ListPoints(ctx context.Context, actor Actor, req ListPointsRequest) ([]PointView, error) {
	filter := PointFilter{
		ContentClass: req.ContentClass,
		Category:     req.Category,
		AuthorID:     req.AuthorID,
		Limit:        req.Limit,
		Offset:       req.Offset,
		Statuses:     []models.PointStatus{models.StatusPublished},
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 500
	}
	if len(req.Statuses) > 0 {
		ownList := !actor.Anonymous() && req.AuthorID == actor.UserID
		if !actor.IsModerator() && !ownList {
			return nil, ErrForbidden("Only moderators can filter by status")
		}
		filter.Statuses = req.Statuses
	}
	items := []PointView{}
	err := e.read(ctx, OpListPoints, func(tx Tx) error {
		points, err := tx.ListPoints(ctx, filter)
		if err != nil {
			return err
		}
		items = items[:0]
		for _, point := range points {
			if !canSee(actor, point) {
				continue
			}
			view, err := e.pointView(ctx, tx, actor, point)
			if err != nil {
				return err
			}
			items = append(items, view)
		}
		return nil
	})
	return items, err
}

type PointHistoryRequest struct {
	PointID string `json:"pointId"`
}

// PointHistory lists every overlay of a point, resolved ones included.
func (e *Engine) PointHistory(ctx context.Context, actor Actor, req PointHistoryRequest) ([]models.Overlay, error) {
	var items []models.Overlay
	err := e.read(ctx, OpPointHistory, func(tx Tx) error {
		point, err := e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if !actor.IsModerator() && point.AuthorID != actor.UserID {
			return ErrForbidden("Only the author can see the history")
		}
		items, err = tx.PointOverlays(ctx, point.ID)
		return err
	})
	return items, err
}

type ModerationQueueRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ModerationQueue struct {
	PendingPoints   []models.Point   `json:"pendingPoints"`
	PendingChanges  []models.Overlay `json:"pendingChanges"`
	ReportedPoints  []models.Point   `json:"reportedPoints"`
	ExpiringReports []models.Point   `json:"expiringReports"`
}

func (e *Engine) ModerationQueue(ctx context.Context, actor Actor, req ModerationQueueRequest) (ModerationQueue, error) {
	if err := e.requireModerator(actor); err != nil {
		return ModerationQueue{}, err
	}
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	var queue ModerationQueue
	err := e.read(ctx, OpModerationQueue, func(tx Tx) error {
		var err error
		queue.PendingPoints, err = tx.ListPoints(ctx, PointFilter{Statuses: []models.PointStatus{models.StatusPendingReview}, Limit: limit})
		if err != nil {
			return err
		}
		queue.PendingChanges, err = tx.PendingOverlays(ctx, limit)
		if err != nil {
			return err
		}
		published, err := tx.ListPoints(ctx, PointFilter{Statuses: []models.PointStatus{models.StatusPublished}})
		if err != nil {
			return err
		}
		queue.ReportedPoints = []models.Point{}
		queue.ExpiringReports = []models.Point{}
		for _, point := range published {
			if point.ReportsCount > 0 && len(queue.ReportedPoints) < limit {
				queue.ReportedPoints = append(queue.ReportedPoints, point)
			}
			if point.ResolvedDeleteAt != nil && len(queue.ExpiringReports) < limit {
				queue.ExpiringReports = append(queue.ExpiringReports, point)
			}
		}
		return nil
	})
	return queue, err
}

type ActivityLogRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (e *Engine) ActivityLog(ctx context.Context, actor Actor, req ActivityLogRequest) ([]models.ActivityEntry, error) {
	if err := e.requireModerator(actor); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var items []models.ActivityEntry
	err := e.read(ctx, OpActivityLog, func(tx Tx) error {
		var err error
		items, err = tx.RecentActivity(ctx, limit)
		return err
	})
	return items, err
}
