package db

import (
	"context"

	"citymap-backend-go/internal/models"
)

const overlayColumns = `id, point_id, kind, status, prev_fields, new_fields, reason, requested_by,
  submitted_at, clear_reports_on_approval, resolved_by, resolved_at, resolution_reason`

func (t *pgTx) ActiveOverlay(ctx context.Context, pointID string, kind models.OverlayKind) (models.Overlay, error) {
	var overlay models.Overlay
	err := t.tx.GetContext(ctx, &overlay, `
SELECT `+overlayColumns+` FROM point_overlays
WHERE point_id = $1 AND kind = $2 AND status = 'pending'`+t.forUpdate(), pointID, string(kind))
	return overlay, notFound(err)
}

func (t *pgTx) InsertOverlay(ctx context.Context, overlay models.Overlay) error {
	_, err := t.tx.NamedExecContext(ctx, `
INSERT INTO point_overlays (`+overlayColumns+`) VALUES (
  :id, :point_id, :kind, :status, :prev_fields, :new_fields, :reason, :requested_by,
  :submitted_at, :clear_reports_on_approval, :resolved_by, :resolved_at, :resolution_reason
)`, overlay)
	return err
}

func (t *pgTx) UpdateOverlay(ctx context.Context, overlay models.Overlay) error {
	_, err := t.tx.NamedExecContext(ctx, `
UPDATE point_overlays SET
  status = :status, clear_reports_on_approval = :clear_reports_on_approval,
  resolved_by = :resolved_by, resolved_at = :resolved_at, resolution_reason = :resolution_reason
WHERE id = :id`, overlay)
	return err
}

func (t *pgTx) PointOverlays(ctx context.Context, pointID string) ([]models.Overlay, error) {
	items := []models.Overlay{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT `+overlayColumns+` FROM point_overlays WHERE point_id = $1 ORDER BY submitted_at, id`, pointID)
	return items, err
}

func (t *pgTx) PendingOverlays(ctx context.Context, limit int) ([]models.Overlay, error) {
	items := []models.Overlay{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT `+overlayColumns+` FROM point_overlays WHERE status = 'pending' ORDER BY submitted_at, id LIMIT $1`, limit)
	return items, err
}

func (t *pgTx) GetVote(ctx context.Context, pointID, userID string) (models.Vote, error) {
	var vote models.Vote
	err := t.tx.GetContext(ctx, &vote, `
SELECT point_id, user_id, direction, created_at FROM point_votes
WHERE point_id = $1 AND user_id = $2`+t.forUpdate(), pointID, userID)
	return vote, notFound(err)
}

func (t *pgTx) SaveVote(ctx context.Context, vote models.Vote) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO point_votes (point_id, user_id, direction, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (point_id, user_id) DO UPDATE SET direction = EXCLUDED.direction, created_at = EXCLUDED.created_at`,
		vote.PointID, vote.UserID, string(vote.Direction), vote.CreatedAt)
	return err
}

func (t *pgTx) DeleteVote(ctx context.Context, pointID, userID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM point_votes WHERE point_id = $1 AND user_id = $2`, pointID, userID)
	return err
}

func (t *pgTx) GetFlag(ctx context.Context, pointID, reporterID string) (models.ReportFlag, error) {
	var flag models.ReportFlag
	err := t.tx.GetContext(ctx, &flag, `
SELECT id, point_id, reporter_id, reason, created_at FROM point_flags
WHERE point_id = $1 AND reporter_id = $2`, pointID, reporterID)
	return flag, notFound(err)
}

func (t *pgTx) InsertFlag(ctx context.Context, flag models.ReportFlag) error {
	_, err := t.tx.NamedExecContext(ctx, `
INSERT INTO point_flags (id, point_id, reporter_id, reason, created_at)
VALUES (:id, :point_id, :reporter_id, :reason, :created_at)`, flag)
	return err
}

func (t *pgTx) PointFlags(ctx context.Context, pointID string) ([]models.ReportFlag, error) {
	items := []models.ReportFlag{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT id, point_id, reporter_id, reason, created_at FROM point_flags
WHERE point_id = $1 ORDER BY created_at, id`, pointID)
	return items, err
}

func (t *pgTx) ClearFlags(ctx context.Context, pointID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM point_flags WHERE point_id = $1`, pointID)
	return err
}

func (t *pgTx) PurgeInteractions(ctx context.Context, pointID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM point_votes WHERE point_id = $1`, pointID); err != nil {
		return err
	}
	return t.ClearFlags(ctx, pointID)
}

func (t *pgTx) AppendActivity(ctx context.Context, entry models.ActivityEntry) error {
	_, err := t.tx.NamedExecContext(ctx, `
INSERT INTO activity_log (id, actor_id, action, object_type, object_id, description, created_at)
VALUES (:id, :actor_id, :action, :object_type, :object_id, :description, :created_at)`, entry)
	return err
}

func (t *pgTx) RecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	items := []models.ActivityEntry{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT id, actor_id, action, object_type, object_id, description, created_at
FROM activity_log ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	return items, err
}
