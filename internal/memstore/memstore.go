// Package memstore keeps engine state in process memory. Every unit of work
// runs against a private copy that replaces the live state on commit, so a
// failed unit leaves nothing behind. Units are serialized by one mutex.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"
)

var (
	errReadOnly      = errors.New("memstore: write in read-only unit")
	errUniquePending = errors.New("memstore: point already has a pending change of this kind")
	errUniqueFlag    = errors.New("memstore: reporter already flagged this point")
)

type pairKey struct {
	a, b string
}

type quotaKey struct {
	user, day string
	class     models.QuotaClass
}

type state struct {
	points       map[string]models.Point
	overlays     map[string]models.Overlay
	votes        map[pairKey]models.Vote
	flags        map[pairKey]models.ReportFlag
	daily        map[quotaKey]models.DailyQuota
	photo        map[pairKey]models.PhotoQuota
	restrictions map[string]models.Restriction
	activity     []models.ActivityEntry
	caseSeq      int64
}

func newState() *state {
	return &state{
		points:       map[string]models.Point{},
		overlays:     map[string]models.Overlay{},
		votes:        map[pairKey]models.Vote{},
		flags:        map[pairKey]models.ReportFlag{},
		daily:        map[quotaKey]models.DailyQuota{},
		photo:        map[pairKey]models.PhotoQuota{},
		restrictions: map[string]models.Restriction{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.points {
		c.points[k] = v
	}
	for k, v := range s.overlays {
		c.overlays[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.flags {
		c.flags[k] = v
	}
	for k, v := range s.daily {
		c.daily[k] = v
	}
	for k, v := range s.photo {
		c.photo[k] = v
	}
	for k, v := range s.restrictions {
		v.Categories = append([]string(nil), v.Categories...)
		c.restrictions[k] = v
	}
	c.activity = append([]models.ActivityEntry(nil), s.activity...)
	c.caseSeq = s.caseSeq
	return c
}

type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ services.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(tx services.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx services.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{st: s.state, readOnly: true})
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func hasStatus(statuses []models.PointStatus, status models.PointStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func sortPoints(points []models.Point) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].CreatedAt.Equal(points[j].CreatedAt) {
			return points[i].ID < points[j].ID
		}
		return points[i].CreatedAt.After(points[j].CreatedAt)
	})
}

func (t *tx) GetPoint(_ context.Context, id string) (models.Point, error) {
	p, ok := t.st.points[id]
	if !ok {
		return models.Point{}, services.ErrRecordNotFound
	}
	return p, nil
}

func (t *tx) InsertPoint(_ context.Context, point models.Point) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, exists := t.st.points[point.ID]; exists {
		return errors.New("memstore: duplicate point id")
	}
	t.st.points[point.ID] = point
	return nil
}

func (t *tx) UpdatePoint(_ context.Context, point models.Point) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.points[point.ID]; !ok {
		return services.ErrRecordNotFound
	}
	t.st.points[point.ID] = point
	return nil
}

func (t *tx) DeletePoint(_ context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	delete(t.st.points, id)
	for key, o := range t.st.overlays {
		if o.PointID == id {
			delete(t.st.overlays, key)
		}
	}
	t.purge(id)
	return nil
}

func (t *tx) ListPoints(_ context.Context, filter services.PointFilter) ([]models.Point, error) {
	items := []models.Point{}
	for _, p := range t.st.points {
		if !hasStatus(filter.Statuses, p.Status) {
			continue
		}
		if filter.ContentClass != "" && p.ContentClass != filter.ContentClass {
			continue
		}
		if filter.Category != "" && (p.Category == nil || *p.Category != filter.Category) {
			continue
		}
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		items = append(items, p)
	}
	sortPoints(items)
	if filter.Offset > 0 {
		if filter.Offset >= len(items) {
			return []models.Point{}, nil
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (t *tx) NearbyPoints(_ context.Context, q services.NearbyQuery) ([]models.Point, error) {
	items := []models.Point{}
	for _, p := range t.st.points {
		if p.ContentClass != q.ContentClass || !hasStatus(q.Statuses, p.Status) {
			continue
		}
		if q.Category != "" && (p.Category == nil || *p.Category != q.Category) {
			continue
		}
		if p.Lat < q.MinLat || p.Lat > q.MaxLat || p.Lng < q.MinLng || p.Lng > q.MaxLng {
			continue
		}
		items = append(items, p)
	}
	sortPoints(items)
	return items, nil
}

func (t *tx) ExpiredResolved(_ context.Context, now time.Time) ([]models.Point, error) {
	items := []models.Point{}
	for _, p := range t.st.points {
		if p.Status == models.StatusDeleted || p.ResolvedDeleteAt == nil || p.ResolvedDeleteAt.After(now) {
			continue
		}
		if p.ReportStatus == nil || *p.ReportStatus != models.ReportResolved {
			continue
		}
		items = append(items, p)
	}
	sortPoints(items)
	return items, nil
}

func (t *tx) StalePending(_ context.Context, before time.Time) ([]models.Point, error) {
	items := []models.Point{}
	for _, p := range t.st.points {
		if p.Status == models.StatusPendingReview && p.CreatedAt.Before(before) {
			items = append(items, p)
		}
	}
	sortPoints(items)
	return items, nil
}

func (t *tx) DeletedBefore(_ context.Context, before time.Time) ([]string, error) {
	ids := []string{}
	for _, p := range t.st.points {
		if p.Status == models.StatusDeleted && p.DeletedAt != nil && p.DeletedAt.Before(before) {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *tx) NextCaseNumber(_ context.Context) (int64, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	t.st.caseSeq++
	return t.st.caseSeq, nil
}

// SerializeSubmissions is a no-op: units of work already run one at a time.
func (t *tx) SerializeSubmissions(_ context.Context, _ string) error {
	return t.writable()
}
