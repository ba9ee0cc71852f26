package services

import (
	"context"
	"errors"
	"strings"

	"citymap-backend-go/internal/models"

	"github.com/google/uuid"
)

type Verification string

const (
	VerificationNone     Verification = ""
	VerificationPositive Verification = "positive"
	VerificationNegative Verification = "negative"
)

// Verify derives the community verification badge. It is never stored.
func Verify(votes, threshold int) Verification {
	if threshold <= 0 {
		return VerificationNone
	}
	switch {
	case votes >= threshold:
		return VerificationPositive
	case votes <= -threshold:
		return VerificationNegative
	}
	return VerificationNone
}

func ParseVoteDirection(raw string) (models.VoteDirection, error) {
	switch direction := models.VoteDirection(strings.ToLower(strings.TrimSpace(raw))); direction {
	case models.VoteUp, models.VoteDown:
		return direction, nil
	}
	return "", ErrValidation("Vote must be up or down")
}

func voteWeight(direction models.VoteDirection) int {
	if direction == models.VoteUp {
		return 1
	}
	return -1
}

type CastVoteRequest struct {
	PointID   string               `json:"pointId"`
	Direction models.VoteDirection `json:"direction"`
}

type VoteResult struct {
	PointID      string                `json:"pointId"`
	VotesCount   int                   `json:"votesCount"`
	Vote         *models.VoteDirection `json:"vote"`
	Verification Verification          `json:"verification,omitempty"`
	AutoFlagged  bool                  `json:"autoFlagged,omitempty"`
}

// CastVote toggles the caller's vote. Same direction again removes it, the
// opposite direction replaces it.
func (e *Engine) CastVote(ctx context.Context, actor Actor, req CastVoteRequest) (VoteResult, error) {
	direction, err := ParseVoteDirection(string(req.Direction))
	if err != nil {
		return VoteResult{}, err
	}
	var result VoteResult
	err = e.write(ctx, OpCastVote, func(tx Tx, u *unit) error {
		if err := e.guard(ctx, tx, actor, RestrictVoting); err != nil {
			return err
		}
		point, err := e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.Status != models.StatusPublished {
			return ErrInvalidTransition("Point is not open for voting")
		}
		existing, err := tx.GetVote(ctx, point.ID, actor.UserID)
		hasVote := err == nil
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		var current *models.VoteDirection
		switch {
		case !hasVote:
			point.VotesCount += voteWeight(direction)
			current = &direction
			err = tx.SaveVote(ctx, models.Vote{PointID: point.ID, UserID: actor.UserID, Direction: direction, CreatedAt: e.now()})
		case existing.Direction == direction:
			point.VotesCount -= voteWeight(direction)
			err = tx.DeleteVote(ctx, point.ID, actor.UserID)
		default:
			point.VotesCount += 2 * voteWeight(direction)
			current = &direction
			existing.Direction = direction
			existing.CreatedAt = e.now()
			err = tx.SaveVote(ctx, existing)
		}
		if err != nil {
			return err
		}
		autoFlagged := false
		if e.policy.AutoFlagVotes < 0 && point.VotesCount <= e.policy.AutoFlagVotes {
			autoFlagged, err = e.addFlag(ctx, tx, &point, SystemUserID, "Community disapproval threshold reached")
			if err != nil {
				return err
			}
		}
		point.UpdatedAt = e.now()
		if err := tx.UpdatePoint(ctx, point); err != nil {
			return err
		}
		result = VoteResult{
			PointID:      point.ID,
			VotesCount:   point.VotesCount,
			Vote:         current,
			Verification: Verify(point.VotesCount, e.policy.VerificationVotes),
			AutoFlagged:  autoFlagged,
		}
		u.emit(e.event(EventVoteCast, actor, point.ID, map[string]interface{}{"votesCount": point.VotesCount}))
		if autoFlagged {
			u.emit(e.event(EventPointFlagged, SystemActor(), point.ID, map[string]interface{}{"reportsCount": point.ReportsCount}))
		}
		return nil
	})
	return result, err
}

type FlagPointRequest struct {
	PointID string `json:"pointId"`
	Reason  string `json:"reason"`
}

type FlagResult struct {
	PointID      string `json:"pointId"`
	ReportsCount int    `json:"reportsCount"`
	Created      bool   `json:"created"`
}

// FlagPoint is idempotent per reporter: a repeated flag changes nothing.
func (e *Engine) FlagPoint(ctx context.Context, actor Actor, req FlagPointRequest) (FlagResult, error) {
	reason, err := NormalizeRequired(req.Reason, "Reason is required")
	if err != nil {
		return FlagResult{}, err
	}
	var result FlagResult
	err = e.write(ctx, OpFlagPoint, func(tx Tx, u *unit) error {
		if err := e.guard(ctx, tx, actor); err != nil {
			return err
		}
		point, err := e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.Status != models.StatusPublished {
			return ErrInvalidTransition("Point is not open for reports")
		}
		created, err := e.addFlag(ctx, tx, &point, actor.UserID, reason)
		if err != nil {
			return err
		}
		result = FlagResult{PointID: point.ID, ReportsCount: point.ReportsCount, Created: created}
		if !created {
			return nil
		}
		point.UpdatedAt = e.now()
		if err := tx.UpdatePoint(ctx, point); err != nil {
			return err
		}
		u.emit(e.event(EventPointFlagged, actor, point.ID, map[string]interface{}{"reportsCount": point.ReportsCount}))
		return nil
	})
	return result, err
}

// addFlag inserts a flag unless the reporter already has one. The caller
// persists the point.
func (e *Engine) addFlag(ctx context.Context, tx Tx, point *models.Point, reporterID, reason string) (bool, error) {
	_, err := tx.GetFlag(ctx, point.ID, reporterID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return false, err
	}
	flag := models.ReportFlag{
		ID:         uuid.NewString(),
		PointID:    point.ID,
		ReporterID: reporterID,
		Reason:     reason,
		CreatedAt:  e.now(),
	}
	if err := tx.InsertFlag(ctx, flag); err != nil {
		return false, err
	}
	point.ReportsCount++
	if point.ContentClass == models.ClassReport {
		e.setReportStatus(point, models.ReportReported)
	}
	return true, nil
}

// clearReports drops every flag. A report parked in "reported" goes back to
// "added". The caller persists the point.
func (e *Engine) clearReports(ctx context.Context, tx Tx, point *models.Point) error {
	if err := tx.ClearFlags(ctx, point.ID); err != nil {
		return err
	}
	point.ReportsCount = 0
	if point.ReportStatus != nil && *point.ReportStatus == models.ReportReported {
		e.setReportStatus(point, models.ReportAdded)
	}
	return nil
}

type ResolveAction string

const (
	ResolveKeep   ResolveAction = "keep"
	ResolveRemove ResolveAction = "remove"
	ResolveEdit   ResolveAction = "edit"
)

type ResolveReportsRequest struct {
	PointID string              `json:"pointId"`
	Action  ResolveAction       `json:"action"`
	Reason  string              `json:"reason,omitempty"`
	Fields  *models.PointFields `json:"fields,omitempty"`
}

type ResolveResult struct {
	Point   models.Point    `json:"point"`
	Overlay *models.Overlay `json:"overlay,omitempty"`
}

// ResolveReports closes the flags on a point. Edit routes through the
// overlay: flags are cleared when that edit is approved.
func (e *Engine) ResolveReports(ctx context.Context, actor Actor, req ResolveReportsRequest) (ResolveResult, error) {
	if err := e.requireModerator(actor); err != nil {
		return ResolveResult{}, err
	}
	switch req.Action {
	case ResolveKeep, ResolveRemove, ResolveEdit:
	default:
		return ResolveResult{}, ErrValidation("Unknown resolution")
	}
	var result ResolveResult
	err := e.write(ctx, OpResolveReports, func(tx Tx, u *unit) error {
		point, err := e.loadPoint(ctx, tx, req.PointID)
		if err != nil {
			return err
		}
		if point.ReportsCount == 0 {
			return ErrInvalidTransition("Point has no open reports")
		}
		switch req.Action {
		case ResolveKeep:
			if err := e.clearReports(ctx, tx, &point); err != nil {
				return err
			}
			point.UpdatedAt = e.now()
			if err := tx.UpdatePoint(ctx, point); err != nil {
				return err
			}
		case ResolveRemove:
			if err := e.deletePoint(ctx, tx, u, actor, &point, req.Reason); err != nil {
				return err
			}
		case ResolveEdit:
			overlay, err := e.routeEdit(ctx, tx, u, actor, point, req)
			if err != nil {
				return err
			}
			result.Overlay = &overlay
		}
		result.Point = point
		u.emit(e.event(EventReportsResolved, actor, point.ID, map[string]interface{}{"action": req.Action}))
		return e.record(ctx, tx, actor, "resolve_reports", "point", point.ID, string(req.Action)+": "+req.Reason)
	})
	return result, err
}

// routeEdit either opens a new edit that clears flags on approval or marks
// the already pending edit to do so.
func (e *Engine) routeEdit(ctx context.Context, tx Tx, u *unit, actor Actor, point models.Point, req ResolveReportsRequest) (models.Overlay, error) {
	if req.Fields != nil {
		return e.proposeEdit(ctx, tx, u, actor, ProposeEditRequest{PointID: point.ID, Fields: *req.Fields, Reason: req.Reason}, true)
	}
	pending, err := e.activeOverlay(ctx, tx, point.ID, models.OverlayEdit)
	if err != nil {
		return models.Overlay{}, err
	}
	if pending == nil {
		return models.Overlay{}, ErrValidation("Edit fields are required when no edit is pending")
	}
	pending.ClearReportsOnApproval = true
	if err := tx.UpdateOverlay(ctx, *pending); err != nil {
		return models.Overlay{}, err
	}
	return *pending, nil
}
