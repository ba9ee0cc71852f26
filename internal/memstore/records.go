package memstore

import (
	"context"
	"sort"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"
)

func (t *tx) ActiveOverlay(_ context.Context, pointID string, kind models.OverlayKind) (models.Overlay, error) {
	for _, o := range t.st.overlays {
		if o.PointID == pointID && o.Kind == kind && o.Status == models.OverlayPending {
			return o, nil
		}
	}
	return models.Overlay{}, services.ErrRecordNotFound
}

func (t *tx) InsertOverlay(ctx context.Context, overlay models.Overlay) error {
	if err := t.writable(); err != nil {
		return err
	}
	if overlay.Status == models.OverlayPending {
		if _, err := t.ActiveOverlay(ctx, overlay.PointID, overlay.Kind); err == nil {
			return errUniquePending
		}
	}
	t.st.overlays[overlay.ID] = overlay
	return nil
}

func (t *tx) UpdateOverlay(_ context.Context, overlay models.Overlay) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.overlays[overlay.ID]; !ok {
		return services.ErrRecordNotFound
	}
	t.st.overlays[overlay.ID] = overlay
	return nil
}

func sortOverlays(items []models.Overlay) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
}

func (t *tx) PointOverlays(_ context.Context, pointID string) ([]models.Overlay, error) {
	items := []models.Overlay{}
	for _, o := range t.st.overlays {
		if o.PointID == pointID {
			items = append(items, o)
		}
	}
	sortOverlays(items)
	return items, nil
}

func (t *tx) PendingOverlays(_ context.Context, limit int) ([]models.Overlay, error) {
	items := []models.Overlay{}
	for _, o := range t.st.overlays {
		if o.Status == models.OverlayPending {
			items = append(items, o)
		}
	}
	sortOverlays(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (t *tx) GetVote(_ context.Context, pointID, userID string) (models.Vote, error) {
	v, ok := t.st.votes[pairKey{pointID, userID}]
	if !ok {
		return models.Vote{}, services.ErrRecordNotFound
	}
	return v, nil
}

func (t *tx) SaveVote(_ context.Context, vote models.Vote) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.votes[pairKey{vote.PointID, vote.UserID}] = vote
	return nil
}

func (t *tx) DeleteVote(_ context.Context, pointID, userID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.st.votes, pairKey{pointID, userID})
	return nil
}

func (t *tx) GetFlag(_ context.Context, pointID, reporterID string) (models.ReportFlag, error) {
	f, ok := t.st.flags[pairKey{pointID, reporterID}]
	if !ok {
		return models.ReportFlag{}, services.ErrRecordNotFound
	}
	return f, nil
}

func (t *tx) InsertFlag(_ context.Context, flag models.ReportFlag) error {
	if err := t.writable(); err != nil {
		return err
	}
	key := pairKey{flag.PointID, flag.ReporterID}
	if _, exists := t.st.flags[key]; exists {
		return errUniqueFlag
	}
	t.st.flags[key] = flag
	return nil
}

func (t *tx) PointFlags(_ context.Context, pointID string) ([]models.ReportFlag, error) {
	items := []models.ReportFlag{}
	for key, f := range t.st.flags {
		if key.a == pointID {
			items = append(items, f)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (t *tx) ClearFlags(_ context.Context, pointID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	for key := range t.st.flags {
		if key.a == pointID {
			delete(t.st.flags, key)
		}
	}
	return nil
}

func (t *tx) PurgeInteractions(_ context.Context, pointID string) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.purge(pointID)
	return nil
}

func (t *tx) purge(pointID string) {
	for key := range t.st.votes {
		if key.a == pointID {
			delete(t.st.votes, key)
		}
	}
	for key := range t.st.flags {
		if key.a == pointID {
			delete(t.st.flags, key)
		}
	}
}

func (t *tx) LockDailyQuota(_ context.Context, userID, day string, class models.QuotaClass, initial int) (models.DailyQuota, error) {
	if err := t.writable(); err != nil {
		return models.DailyQuota{}, err
	}
	key := quotaKey{userID, day, class}
	q, ok := t.st.daily[key]
	if !ok {
		q = models.DailyQuota{UserID: userID, Day: day, QuotaClass: class, Remaining: initial, Allowance: initial}
		t.st.daily[key] = q
	}
	return q, nil
}

func (t *tx) SaveDailyQuota(_ context.Context, quota models.DailyQuota) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.daily[quotaKey{quota.UserID, quota.Day, quota.QuotaClass}] = quota
	return nil
}

func (t *tx) DailyQuotas(_ context.Context, userID, day string) ([]models.DailyQuota, error) {
	items := []models.DailyQuota{}
	for key, q := range t.st.daily {
		if key.user == userID && key.day == day {
			items = append(items, q)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].QuotaClass < items[j].QuotaClass })
	return items, nil
}

func (t *tx) LockPhotoQuota(_ context.Context, userID, month string, initialLimit int64) (models.PhotoQuota, error) {
	if err := t.writable(); err != nil {
		return models.PhotoQuota{}, err
	}
	key := pairKey{userID, month}
	q, ok := t.st.photo[key]
	if !ok {
		q = models.PhotoQuota{UserID: userID, Month: month, LimitBytes: initialLimit}
		t.st.photo[key] = q
	}
	return q, nil
}

func (t *tx) GetPhotoQuota(_ context.Context, userID, month string) (models.PhotoQuota, error) {
	q, ok := t.st.photo[pairKey{userID, month}]
	if !ok {
		return models.PhotoQuota{}, services.ErrRecordNotFound
	}
	return q, nil
}

func (t *tx) SavePhotoQuota(_ context.Context, quota models.PhotoQuota) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.photo[pairKey{quota.UserID, quota.Month}] = quota
	return nil
}

func (t *tx) GetRestriction(_ context.Context, userID string) (models.Restriction, error) {
	r, ok := t.st.restrictions[userID]
	if !ok {
		return models.Restriction{}, services.ErrRecordNotFound
	}
	r.Categories = append([]string(nil), r.Categories...)
	return r, nil
}

func (t *tx) SaveRestriction(_ context.Context, restriction models.Restriction) error {
	if err := t.writable(); err != nil {
		return err
	}
	restriction.Categories = append([]string(nil), restriction.Categories...)
	t.st.restrictions[restriction.UserID] = restriction
	return nil
}

func (t *tx) AppendActivity(_ context.Context, entry models.ActivityEntry) error {
	if err := t.writable(); err != nil {
		return err
	}
	t.st.activity = append(t.st.activity, entry)
	return nil
}

func (t *tx) RecentActivity(_ context.Context, limit int) ([]models.ActivityEntry, error) {
	items := make([]models.ActivityEntry, 0, limit)
	for i := len(t.st.activity) - 1; i >= 0 && (limit <= 0 || len(items) < limit); i-- {
		items = append(items, t.st.activity[i])
	}
	return items, nil
}
