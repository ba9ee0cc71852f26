package db

import (
	"context"
	"strings"
	"time"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/jmoiron/sqlx"
)

const pointColumns = `id, case_number, case_id, content_class, category, title, content, lat, lng,
  address, website, phone, status, report_status, resolved_delete_at, votes_count, reports_count,
  author_id, created_at, updated_at, deleted_at`

func (t *pgTx) GetPoint(ctx context.Context, id string) (models.Point, error) {
	var point models.Point
	err := t.tx.GetContext(ctx, &point, `SELECT `+pointColumns+` FROM points WHERE id = $1`+t.forUpdate(), id)
	return point, notFound(err)
}

func (t *pgTx) InsertPoint(ctx context.Context, point models.Point) error {
	_, err := t.tx.NamedExecContext(ctx, `
INSERT INTO points (`+pointColumns+`) VALUES (
  :id, :case_number, :case_id, :content_class, :category, :title, :content, :lat, :lng,
  :address, :website, :phone, :status, :report_status, :resolved_delete_at, :votes_count, :reports_count,
  :author_id, :created_at, :updated_at, :deleted_at
)`, point)
	return err
}

func (t *pgTx) UpdatePoint(ctx context.Context, point models.Point) error {
	res, err := t.tx.NamedExecContext(ctx, `
UPDATE points SET
  category = :category, title = :title, content = :content, lat = :lat, lng = :lng,
  address = :address, website = :website, phone = :phone, status = :status,
  report_status = :report_status, resolved_delete_at = :resolved_delete_at,
  votes_count = :votes_count, reports_count = :reports_count,
  updated_at = :updated_at, deleted_at = :deleted_at
WHERE id = :id`, point)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.ErrRecordNotFound
	}
	return nil
}

func (t *pgTx) DeletePoint(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM points WHERE id = $1`, id)
	return err
}

type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) statuses(statuses []models.PointStatus) {
	if len(statuses) == 0 {
		return
	}
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	w.add(`status IN (?)`, values)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (t *pgTx) selectPoints(ctx context.Context, where whereBuilder, tail string) ([]models.Point, error) {
	query, args, err := sqlx.In(`SELECT `+pointColumns+` FROM points`+where.sql()+tail, where.args...)
	if err != nil {
		return nil, err
	}
	items := []models.Point{}
	if err := t.tx.SelectContext(ctx, &items, t.tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (t *pgTx) ListPoints(ctx context.Context, filter services.PointFilter) ([]models.Point, error) {
	var where whereBuilder
	where.statuses(filter.Statuses)
	if filter.ContentClass != "" {
		where.add(`content_class = ?`, string(filter.ContentClass))
	}
	if filter.Category != "" {
		where.add(`category = ?`, filter.Category)
	}
	if filter.AuthorID != "" {
		where.add(`author_id = ?`, filter.AuthorID)
	}
	tail := ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		tail += ` LIMIT ?`
		where.args = append(where.args, filter.Limit)
	}
	if filter.Offset > 0 {
		tail += ` OFFSET ?`
		where.args = append(where.args, filter.Offset)
	}
	return t.selectPoints(ctx, where, tail)
}

func (t *pgTx) NearbyPoints(ctx context.Context, q services.NearbyQuery) ([]models.Point, error) {
	var where whereBuilder
	where.add(`content_class = ?`, string(q.ContentClass))
	where.statuses(q.Statuses)
	if q.Category != "" {
		where.add(`category = ?`, q.Category)
	}
	where.add(`lat BETWEEN ? AND ?`, q.MinLat, q.MaxLat)
	where.add(`lng BETWEEN ? AND ?`, q.MinLng, q.MaxLng)
	return t.selectPoints(ctx, where, ` ORDER BY created_at, id`)
}

func (t *pgTx) ExpiredResolved(ctx context.Context, now time.Time) ([]models.Point, error) {
	items := []models.Point{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT `+pointColumns+` FROM points
WHERE status <> 'deleted' AND report_status = 'resolved' AND resolved_delete_at <= $1
ORDER BY resolved_delete_at, id`+t.forUpdate(), now)
	return items, err
}

func (t *pgTx) StalePending(ctx context.Context, before time.Time) ([]models.Point, error) {
	items := []models.Point{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT `+pointColumns+` FROM points
WHERE status = 'pending_review' AND created_at < $1
ORDER BY created_at, id`+t.forUpdate(), before)
	return items, err
}

func (t *pgTx) DeletedBefore(ctx context.Context, before time.Time) ([]string, error) {
	ids := []string{}
	err := t.tx.SelectContext(ctx, &ids, `
SELECT id FROM points WHERE status = 'deleted' AND deleted_at < $1 ORDER BY id`, before)
	return ids, err
}

func (t *pgTx) NextCaseNumber(ctx context.Context) (int64, error) {
	var next int64
	err := t.tx.GetContext(ctx, &next, `SELECT nextval('point_case_seq')`)
	return next, err
}

// SerializeSubmissions takes a transaction-scoped advisory lock per
// duplicate bucket.
func (t *pgTx) SerializeSubmissions(ctx context.Context, key string) error {
	_, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}
