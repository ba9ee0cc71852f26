package db

import (
	"context"

	"citymap-backend-go/internal/models"
)

// LockDailyQuota creates the counter on first use and locks it.
func (t *pgTx) LockDailyQuota(ctx context.Context, userID, day string, class models.QuotaClass, initial int) (models.DailyQuota, error) {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO daily_quotas (user_id, day, quota_class, remaining, allowance) VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (user_id, day, quota_class) DO NOTHING`, userID, day, string(class), initial); err != nil {
		return models.DailyQuota{}, err
	}
	var quota models.DailyQuota
	err := t.tx.GetContext(ctx, &quota, `
SELECT user_id, day, quota_class, remaining, allowance, updated_at FROM daily_quotas
WHERE user_id = $1 AND day = $2 AND quota_class = $3 FOR UPDATE`, userID, day, string(class))
	return quota, notFound(err)
}

func (t *pgTx) SaveDailyQuota(ctx context.Context, quota models.DailyQuota) error {
	_, err := t.tx.NamedExecContext(ctx, `
UPDATE daily_quotas SET remaining = :remaining, allowance = :allowance, updated_at = :updated_at
WHERE user_id = :user_id AND day = :day AND quota_class = :quota_class`, quota)
	return err
}

func (t *pgTx) DailyQuotas(ctx context.Context, userID, day string) ([]models.DailyQuota, error) {
	items := []models.DailyQuota{}
	err := t.tx.SelectContext(ctx, &items, `
SELECT user_id, day, quota_class, remaining, allowance, updated_at FROM daily_quotas
WHERE user_id = $1 AND day = $2 ORDER BY quota_class`, userID, day)
	return items, err
}

func (t *pgTx) LockPhotoQuota(ctx context.Context, userID, month string, initialLimit int64) (models.PhotoQuota, error) {
	if _, err := t.tx.ExecContext(ctx, `
INSERT INTO photo_quotas (user_id, month, used_bytes, limit_bytes) VALUES ($1, $2, 0, $3)
ON CONFLICT (user_id, month) DO NOTHING`, userID, month, initialLimit); err != nil {
		return models.PhotoQuota{}, err
	}
	var quota models.PhotoQuota
	err := t.tx.GetContext(ctx, &quota, `
SELECT user_id, month, used_bytes, limit_bytes, updated_at FROM photo_quotas
WHERE user_id = $1 AND month = $2 FOR UPDATE`, userID, month)
	return quota, notFound(err)
}

func (t *pgTx) GetPhotoQuota(ctx context.Context, userID, month string) (models.PhotoQuota, error) {
	var quota models.PhotoQuota
	err := t.tx.GetContext(ctx, &quota, `
SELECT user_id, month, used_bytes, limit_bytes, updated_at FROM photo_quotas
WHERE user_id = $1 AND month = $2`, userID, month)
	return quota, notFound(err)
}

func (t *pgTx) SavePhotoQuota(ctx context.Context, quota models.PhotoQuota) error {
	_, err := t.tx.NamedExecContext(ctx, `
UPDATE photo_quotas SET used_bytes = :used_bytes, limit_bytes = :limit_bytes, updated_at = :updated_at
WHERE user_id = :user_id AND month = :month`, quota)
	return err
}

func (t *pgTx) GetRestriction(ctx context.Context, userID string) (models.Restriction, error) {
	var r models.Restriction
	err := t.tx.GetContext(ctx, &r, `
SELECT user_id, ban_state, banned_until, ban_reason, updated_at FROM user_restrictions
WHERE user_id = $1`+t.forUpdate(), userID)
	if err != nil {
		return models.Restriction{}, notFound(err)
	}
	r.Categories = []string{}
	err = t.tx.SelectContext(ctx, &r.Categories, `
SELECT category FROM user_restriction_categories WHERE user_id = $1 ORDER BY category`, userID)
	return r, err
}

func (t *pgTx) SaveRestriction(ctx context.Context, r models.Restriction) error {
	if _, err := t.tx.NamedExecContext(ctx, `
INSERT INTO user_restrictions (user_id, ban_state, banned_until, ban_reason, updated_at)
VALUES (:user_id, :ban_state, :banned_until, :ban_reason, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET
  ban_state = EXCLUDED.ban_state, banned_until = EXCLUDED.banned_until,
  ban_reason = EXCLUDED.ban_reason, updated_at = EXCLUDED.updated_at`, r); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM user_restriction_categories WHERE user_id = $1`, r.UserID); err != nil {
		return err
	}
	for _, category := range r.Categories {
		if _, err := t.tx.ExecContext(ctx, `
INSERT INTO user_restriction_categories (user_id, category) VALUES ($1, $2)`, r.UserID, category); err != nil {
			return err
		}
	}
	return nil
}
