package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"citymap-backend-go/internal/memstore"
	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	baseLat = 52.2297
	baseLng = 21.0122
	// roughly 12 meters of latitude
	twelveMeters = 0.000108
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type eventLog struct {
	mu     sync.Mutex
	events []services.Event
}

func (l *eventLog) Publish(event services.Event) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) Types() []services.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]services.EventType, 0, len(l.events))
	for _, event := range l.events {
		out = append(out, event.Type)
	}
	return out
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	engine *services.Engine
	clock  *fakeClock
	store  *memstore.Store
	events *eventLog
}

func newHarness(t *testing.T, tweak ...func(p *services.Policy)) *harness {
	t.Helper()
	policy := services.DefaultPolicy()
	for _, fn := range tweak {
		fn(&policy)
	}
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		clock:  newFakeClock(),
		store:  memstore.New(),
		events: &eventLog{},
	}
	h.engine = services.NewEngine(h.store, h.clock, policy, zaptest.NewLogger(t), h.events)
	return h
}

var (
	moderator = services.Actor{UserID: "mod-1", Role: services.RoleModerator}
	admin     = services.Actor{UserID: "admin-1", Role: services.RoleAdmin}
	alice     = services.Actor{UserID: "alice", Role: services.RoleUser}
	bob       = services.Actor{UserID: "bob", Role: services.RoleUser}
)

func user(id string) services.Actor {
	return services.Actor{UserID: id, Role: services.RoleUser}
}

func reportAt(lat, lng float64, category string) services.SubmitRequest {
	return services.SubmitRequest{
		ContentClass: models.ClassReport,
		Category:     category,
		Title:        "Pothole near the stop",
		Content:      "Deep enough to damage a wheel",
		Lat:          lat,
		Lng:          lng,
	}
}

func placeAt(lat, lng float64) services.SubmitRequest {
	return services.SubmitRequest{
		ContentClass: models.ClassPlace,
		Title:        "Corner bakery",
		Content:      "Fresh bread from 6am",
		Lat:          lat,
		Lng:          lng,
	}
}

func (h *harness) submit(actor services.Actor, req services.SubmitRequest) models.Point {
	h.t.Helper()
	point, err := h.engine.Submit(h.ctx, actor, req)
	require.NoError(h.t, err)
	return point
}

// published submits as a user and approves as a moderator.
func (h *harness) published(actor services.Actor, req services.SubmitRequest) models.Point {
	h.t.Helper()
	point := h.submit(actor, req)
	point, err := h.engine.Approve(h.ctx, moderator, services.ApproveRequest{PointID: point.ID})
	require.NoError(h.t, err)
	return point
}

func (h *harness) point(id string) models.Point {
	h.t.Helper()
	view, err := h.engine.GetPoint(h.ctx, moderator, services.GetPointRequest{PointID: id})
	require.NoError(h.t, err)
	return view.Point
}

func (h *harness) view(actor services.Actor, id string) services.PointView {
	h.t.Helper()
	view, err := h.engine.GetPoint(h.ctx, actor, services.GetPointRequest{PointID: id})
	require.NoError(h.t, err)
	return view
}

func (h *harness) limits(actor services.Actor) services.DailyLimits {
	h.t.Helper()
	limits, err := h.engine.GetDailyLimits(h.ctx, actor, services.DailyLimitsRequest{UserID: actor.UserID})
	require.NoError(h.t, err)
	return limits
}

func requireKind(t *testing.T, err error, kind services.ErrorKind) services.ServiceError {
	t.Helper()
	require.Error(t, err)
	var serr services.ServiceError
	require.True(t, errors.As(err, &serr), "expected ServiceError, got %T: %v", err, err)
	require.Equal(t, kind, serr.Kind, serr.Message)
	return serr
}

func strPtr(value string) *string {
	return &value
}
