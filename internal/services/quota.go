package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citymap-backend-go/internal/models"
)

func ParseQuotaClass(raw string) (models.QuotaClass, error) {
	switch class := models.QuotaClass(raw); class {
	case models.QuotaPlacesAndCuriosities, models.QuotaReports:
		return class, nil
	}
	return "", ErrValidation(fmt.Sprintf("Unknown quota class %q", raw))
}

func QuotaClassFor(class models.ContentClass) models.QuotaClass {
	if class == models.ClassReport {
		return models.QuotaReports
	}
	return models.QuotaPlacesAndCuriosities
}

// dayKey is the calendar day of t in the quota timezone.
func (e *Engine) dayKey(t time.Time) string {
	return t.In(e.policy.Location).Format("2006-01-02")
}

func (e *Engine) monthKey(t time.Time) string {
	return t.In(e.policy.Location).Format("2006-01")
}

// checkAndConsume takes one unit from today's counter. The counter row is
// created lazily and locked for the rest of the unit of work.
func (e *Engine) checkAndConsume(ctx context.Context, tx Tx, actor Actor, class models.QuotaClass) error {
	if actor.IsModerator() {
		return nil
	}
	now := e.now()
	quota, err := tx.LockDailyQuota(ctx, actor.UserID, e.dayKey(now), class, e.policy.DailyQuotaDefault)
	if err != nil {
		return err
	}
	if quota.Remaining <= 0 {
		return ErrQuotaExceeded(class)
	}
	quota.Remaining--
	quota.UpdatedAt = now
	return tx.SaveDailyQuota(ctx, quota)
}

// refund returns a unit to the author's counter if the point was created
// today. Counters of past days are gone for good, and a counter never
// climbs above its allowance, so a moderator's override stays in force.
func (e *Engine) refund(ctx context.Context, tx Tx, point models.Point) error {
	now := e.now()
	day := e.dayKey(now)
	if e.dayKey(point.CreatedAt) != day {
		return nil
	}
	class := QuotaClassFor(point.ContentClass)
	quota, err := tx.LockDailyQuota(ctx, point.AuthorID, day, class, e.policy.DailyQuotaDefault)
	if err != nil {
		return err
	}
	if quota.Remaining >= quota.Allowance {
		return nil
	}
	quota.Remaining++
	quota.UpdatedAt = now
	return tx.SaveDailyQuota(ctx, quota)
}

type DailyLimits struct {
	UserID               string `json:"userId"`
	Day                  string `json:"day"`
	PlacesAndCuriosities int    `json:"placesAndCuriosities"`
	Reports              int    `json:"reports"`
	PhotoUsedBytes       int64  `json:"photoUsedBytes"`
	PhotoLimitBytes      int64  `json:"photoLimitBytes"`
	Unlimited            bool   `json:"unlimited,omitempty"`
}

type DailyLimitsRequest struct {
	UserID string `json:"userId"`
}

// GetDailyLimits reads counters without creating them.
func (e *Engine) GetDailyLimits(ctx context.Context, actor Actor, req DailyLimitsRequest) (DailyLimits, error) {
	userID := req.UserID
	if userID != actor.UserID {
		if err := e.requireModerator(actor); err != nil {
			return DailyLimits{}, err
		}
	}
	now := e.now()
	limits := DailyLimits{
		UserID:               userID,
		Day:                  e.dayKey(now),
		PlacesAndCuriosities: e.policy.DailyQuotaDefault,
		Reports:              e.policy.DailyQuotaDefault,
		PhotoLimitBytes:      e.policy.PhotoLimitBytes,
		Unlimited:            userID == actor.UserID && actor.IsModerator(),
	}
	err := e.read(ctx, OpGetDailyLimits, func(tx Tx) error {
		rows, err := tx.DailyQuotas(ctx, userID, limits.Day)
		if err != nil {
			return err
		}
		for _, row := range rows {
			switch row.QuotaClass {
			case models.QuotaPlacesAndCuriosities:
				limits.PlacesAndCuriosities = row.Remaining
			case models.QuotaReports:
				limits.Reports = row.Remaining
			}
		}
		photo, err := tx.GetPhotoQuota(ctx, userID, e.monthKey(now))
		if errors.Is(err, ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		limits.PhotoUsedBytes = photo.UsedBytes
		limits.PhotoLimitBytes = photo.LimitBytes
		return nil
	})
	return limits, err
}

type SetQuotaRequest struct {
	UserID     string            `json:"userId"`
	QuotaClass models.QuotaClass `json:"quotaClass"`
	Remaining  int               `json:"remaining"`
}

func (e *Engine) SetQuota(ctx context.Context, actor Actor, req SetQuotaRequest) (models.DailyQuota, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.DailyQuota{}, err
	}
	if _, err := ParseQuotaClass(string(req.QuotaClass)); err != nil {
		return models.DailyQuota{}, err
	}
	if req.Remaining < 0 {
		return models.DailyQuota{}, ErrValidation("Limit cannot be negative")
	}
	return e.overwriteQuota(ctx, actor, OpSetQuota, req.UserID, req.QuotaClass, req.Remaining)
}

type ResetQuotaRequest struct {
	UserID     string            `json:"userId"`
	QuotaClass models.QuotaClass `json:"quotaClass"`
}

func (e *Engine) ResetQuotaToDefault(ctx context.Context, actor Actor, req ResetQuotaRequest) (models.DailyQuota, error) {
	if err := e.requireModerator(actor); err != nil {
		return models.DailyQuota{}, err
	}
	if _, err := ParseQuotaClass(string(req.QuotaClass)); err != nil {
		return models.DailyQuota{}, err
	}
	return e.overwriteQuota(ctx, actor, OpResetQuotaToDefault, req.UserID, req.QuotaClass, e.policy.DailyQuotaDefault)
}

func (e *Engine) overwriteQuota(ctx context.Context, actor Actor, op Operation, userID string, class models.QuotaClass, remaining int) (models.DailyQuota, error) {
	if userID == "" {
		return models.DailyQuota{}, ErrValidation("User is required")
	}
	var quota models.DailyQuota
	err := e.write(ctx, op, func(tx Tx, u *unit) error {
		now := e.now()
		row, err := tx.LockDailyQuota(ctx, userID, e.dayKey(now), class, e.policy.DailyQuotaDefault)
		if err != nil {
			return err
		}
		row.Remaining = remaining
		row.Allowance = remaining
		row.UpdatedAt = now
		if err := tx.SaveDailyQuota(ctx, row); err != nil {
			return err
		}
		quota = row
		return e.record(ctx, tx, actor, string(op), "user", userID, fmt.Sprintf("%s=%d", class, remaining))
	})
	return quota, err
}

type PhotoUsage struct {
	UserID     string `json:"userId"`
	Month      string `json:"month"`
	UsedBytes  int64  `json:"usedBytes"`
	LimitBytes int64  `json:"limitBytes"`
}

func photoUsage(q models.PhotoQuota) PhotoUsage {
	return PhotoUsage{UserID: q.UserID, Month: q.Month, UsedBytes: q.UsedBytes, LimitBytes: q.LimitBytes}
}

type ConsumePhotoBytesRequest struct {
	Bytes int64 `json:"bytes"`
}

// ConsumePhotoBytes charges accepted upload bytes against the caller's
// monthly budget. Upload layers call it before persisting a file.
func (e *Engine) ConsumePhotoBytes(ctx context.Context, actor Actor, req ConsumePhotoBytesRequest) (PhotoUsage, error) {
	if req.Bytes <= 0 {
		return PhotoUsage{}, ErrValidation("Upload is empty")
	}
	var usage PhotoUsage
	err := e.write(ctx, OpConsumePhotoBytes, func(tx Tx, u *unit) error {
		if err := e.guard(ctx, tx, actor, RestrictPhotoUpload); err != nil {
			return err
		}
		if actor.IsModerator() {
			usage = PhotoUsage{UserID: actor.UserID, Month: e.monthKey(e.now()), UsedBytes: 0, LimitBytes: -1}
			return nil
		}
		now := e.now()
		quota, err := tx.LockPhotoQuota(ctx, actor.UserID, e.monthKey(now), e.policy.PhotoLimitBytes)
		if err != nil {
			return err
		}
		if req.Bytes > quota.LimitBytes-quota.UsedBytes {
			return ErrPhotoQuotaExceeded()
		}
		quota.UsedBytes += req.Bytes
		quota.UpdatedAt = now
		if err := tx.SavePhotoQuota(ctx, quota); err != nil {
			return err
		}
		usage = photoUsage(quota)
		return nil
	})
	return usage, err
}

type SetPhotoLimitRequest struct {
	UserID     string `json:"userId"`
	LimitBytes int64  `json:"limitBytes"`
}

func (e *Engine) SetPhotoLimit(ctx context.Context, actor Actor, req SetPhotoLimitRequest) (PhotoUsage, error) {
	if req.LimitBytes < 0 {
		return PhotoUsage{}, ErrValidation("Limit cannot be negative")
	}
	return e.updatePhotoQuota(ctx, actor, OpSetPhotoLimit, req.UserID, func(q *models.PhotoQuota) string {
		q.LimitBytes = req.LimitBytes
		return fmt.Sprintf("limit=%d", req.LimitBytes)
	})
}

type ResetPhotoUsageRequest struct {
	UserID string `json:"userId"`
}

func (e *Engine) ResetPhotoUsage(ctx context.Context, actor Actor, req ResetPhotoUsageRequest) (PhotoUsage, error) {
	return e.updatePhotoQuota(ctx, actor, OpResetPhotoUsage, req.UserID, func(q *models.PhotoQuota) string {
		q.UsedBytes = 0
		return "used=0"
	})
}

type ResetPhotoLimitRequest struct {
	UserID string `json:"userId"`
}

// ResetPhotoLimit restores the default monthly limit without touching usage.
func (e *Engine) ResetPhotoLimit(ctx context.Context, actor Actor, req ResetPhotoLimitRequest) (PhotoUsage, error) {
	return e.updatePhotoQuota(ctx, actor, OpResetPhotoLimit, req.UserID, func(q *models.PhotoQuota) string {
		q.LimitBytes = e.policy.PhotoLimitBytes
		return fmt.Sprintf("limit=%d", e.policy.PhotoLimitBytes)
	})
}

func (e *Engine) updatePhotoQuota(ctx context.Context, actor Actor, op Operation, userID string, apply func(q *models.PhotoQuota) string) (PhotoUsage, error) {
	if err := e.requireModerator(actor); err != nil {
		return PhotoUsage{}, err
	}
	if userID == "" {
		return PhotoUsage{}, ErrValidation("User is required")
	}
	var usage PhotoUsage
	err := e.write(ctx, op, func(tx Tx, u *unit) error {
		now := e.now()
		quota, err := tx.LockPhotoQuota(ctx, userID, e.monthKey(now), e.policy.PhotoLimitBytes)
		if err != nil {
			return err
		}
		description := apply(&quota)
		quota.UpdatedAt = now
		if err := tx.SavePhotoQuota(ctx, quota); err != nil {
			return err
		}
		usage = photoUsage(quota)
		return e.record(ctx, tx, actor, string(op), "user", userID, description)
	})
	return usage, err
}
