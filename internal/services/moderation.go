package services

import (
	"context"

	"citymap-backend-go/internal/models"

	"go.uber.org/zap"
)

type EditAndResolveRequest struct {
	PointID string             `json:"pointId"`
	Fields  models.PointFields `json:"fields"`
	Reason  string             `json:"reason,omitempty"`
}

// EditAndResolve applies a moderator edit and closes every report on the
// point in one step.
func (e *Engine) EditAndResolve(ctx context.Context, actor Actor, req EditAndResolveRequest) (ResolveResult, error) {
	if err := e.requireModerator(actor); err != nil {
		return ResolveResult{}, err
	}
	var result ResolveResult
	err := e.write(ctx, OpEditAndResolve, func(tx Tx, u *unit) error {
		if _, err := e.proposeEdit(ctx, tx, u, actor, ProposeEditRequest{PointID: req.PointID, Fields: req.Fields, Reason: req.Reason}, true); err != nil {
			return err
		}
		point, overlay, err := e.approveEdit(ctx, tx, u, actor, req.PointID)
		if err != nil {
			return err
		}
		result = ResolveResult{Point: point, Overlay: &overlay}
		u.emit(e.event(EventReportsResolved, actor, point.ID, map[string]interface{}{"action": ResolveKeep}))
		return e.record(ctx, tx, actor, "edit_and_resolve", "point", point.ID, req.Reason)
	})
	return result, err
}

type PurgeExpiredRequest struct{}

type PurgeResult struct {
	Purged []string `json:"purged"`
}

// PurgeExpired deletes resolved reports whose grace period has passed.
// Deleted points are never selected again, so repeated runs are no-ops.
func (e *Engine) PurgeExpired(ctx context.Context, actor Actor, _ PurgeExpiredRequest) (PurgeResult, error) {
	if err := e.requireModerator(actor); err != nil {
		return PurgeResult{}, err
	}
	result := PurgeResult{Purged: []string{}}
	err := e.write(ctx, OpPurgeExpired, func(tx Tx, u *unit) error {
		result.Purged = result.Purged[:0]
		points, err := tx.ExpiredResolved(ctx, e.now())
		if err != nil {
			return err
		}
		for i := range points {
			point := points[i]
			if err := e.deletePoint(ctx, tx, u, actor, &point, "resolved grace period ended"); err != nil {
				return err
			}
			if err := e.record(ctx, tx, actor, "purge_resolved", "point", point.ID, point.Title); err != nil {
				return err
			}
			result.Purged = append(result.Purged, point.ID)
		}
		return nil
	})
	if err != nil {
		return PurgeResult{}, err
	}
	if len(result.Purged) > 0 {
		e.log.Info("purged resolved reports", zap.Int("count", len(result.Purged)))
	}
	return result, nil
}

type RunMaintenanceRequest struct{}

type MaintenanceResult struct {
	Purged         []string `json:"purged"`
	ExpiredPending []string `json:"expiredPending"`
	HardDeleted    []string `json:"hardDeleted"`
}

// RunMaintenance is the periodic sweep: purge resolved reports, expire
// stale submissions and drop long-deleted rows.
func (e *Engine) RunMaintenance(ctx context.Context, actor Actor, _ RunMaintenanceRequest) (MaintenanceResult, error) {
	purged, err := e.PurgeExpired(ctx, actor, PurgeExpiredRequest{})
	if err != nil {
		return MaintenanceResult{}, err
	}
	result := MaintenanceResult{Purged: purged.Purged, ExpiredPending: []string{}, HardDeleted: []string{}}
	err = e.write(ctx, OpRunMaintenance, func(tx Tx, u *unit) error {
		result.ExpiredPending = result.ExpiredPending[:0]
		result.HardDeleted = result.HardDeleted[:0]
		now := e.now()
		if e.policy.PendingExpiry > 0 {
			stale, err := tx.StalePending(ctx, now.Add(-e.policy.PendingExpiry))
			if err != nil {
				return err
			}
			for i := range stale {
				point := stale[i]
				if err := e.rejectPending(ctx, tx, u, actor, &point, "expired"); err != nil {
					return err
				}
				result.ExpiredPending = append(result.ExpiredPending, point.ID)
			}
		}
		if e.policy.DeletedRetention > 0 {
			ids, err := tx.DeletedBefore(ctx, now.Add(-e.policy.DeletedRetention))
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := tx.DeletePoint(ctx, id); err != nil {
					return err
				}
				result.HardDeleted = append(result.HardDeleted, id)
			}
		}
		return nil
	})
	if err != nil {
		return MaintenanceResult{}, err
	}
	e.log.Info("maintenance finished",
		zap.Int("purged", len(result.Purged)),
		zap.Int("expiredPending", len(result.ExpiredPending)),
		zap.Int("hardDeleted", len(result.HardDeleted)))
	return result, nil
}
