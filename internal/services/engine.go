package services

import (
	"context"
	"errors"
	"time"

	"citymap-backend-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy holds the tunable constants of the content lifecycle.
type Policy struct {
	DuplicateRadiusMeters float64
	DailyQuotaDefault     int
	PhotoLimitBytes       int64
	ResolvedGrace         time.Duration
	PendingExpiry         time.Duration
	DeletedRetention      time.Duration
	DefaultBanDuration    time.Duration
	AutoFlagVotes         int
	VerificationVotes     int
	CaseIDPrefix          string
	Location              *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		DuplicateRadiusMeters: 50,
		DailyQuotaDefault:     5,
		PhotoLimitBytes:       100 * 1024 * 1024,
		ResolvedGrace:         7 * 24 * time.Hour,
		PendingExpiry:         30 * 24 * time.Hour,
		DeletedRetention:      90 * 24 * time.Hour,
		DefaultBanDuration:    7 * 24 * time.Hour,
		AutoFlagVotes:         -100,
		VerificationVotes:     50,
		CaseIDPrefix:          "ZGL",
		Location:              time.UTC,
	}
}

// Publisher receives lifecycle events after their unit of work commits.
type Publisher interface {
	Publish(event Event)
}

type Engine struct {
	store    Store
	clock    Clock
	policy   Policy
	log      *zap.Logger
	events   Publisher
	handlers map[Operation]handler
}

func NewEngine(store Store, clock Clock, policy Policy, log *zap.Logger, events Publisher) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	e := &Engine{
		store:  store,
		clock:  clock,
		policy: policy,
		log:    log.With(zap.String("module", "engine")),
		events: events,
	}
	e.handlers = newHandlerTable(e)
	return e
}

func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// unit collects side effects that must only happen after commit.
type unit struct {
	events []Event
}

func (u *unit) emit(event Event) {
	u.events = append(u.events, event)
}

func (e *Engine) write(ctx context.Context, op Operation, fn func(tx Tx, u *unit) error) error {
	var u unit
	err := e.store.InTx(ctx, func(tx Tx) error {
		u = unit{}
		return fn(tx, &u)
	})
	if err != nil {
		return e.classify(op, err)
	}
	if e.events != nil {
		for _, event := range u.events {
			e.events.Publish(event)
		}
	}
	return nil
}

func (e *Engine) read(ctx context.Context, op Operation, fn func(tx Tx) error) error {
	if err := e.store.View(ctx, fn); err != nil {
		return e.classify(op, err)
	}
	return nil
}

// classify passes typed errors through and turns everything else into a
// generic internal error after logging it.
func (e *Engine) classify(op Operation, err error) error {
	var serr ServiceError
	if errors.As(err, &serr) {
		return serr
	}
	e.log.Error("operation failed", zap.String("operation", string(op)), zap.Error(err))
	return ErrInternal()
}

func (e *Engine) loadPoint(ctx context.Context, tx Tx, pointID string) (models.Point, error) {
	point, err := tx.GetPoint(ctx, pointID)
	if errors.Is(err, ErrRecordNotFound) {
		return models.Point{}, ErrNotFound("Point not found")
	}
	return point, err
}

func (e *Engine) activeOverlay(ctx context.Context, tx Tx, pointID string, kind models.OverlayKind) (*models.Overlay, error) {
	overlay, err := tx.ActiveOverlay(ctx, pointID, kind)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &overlay, nil
}

func (e *Engine) record(ctx context.Context, tx Tx, actor Actor, action, objectType, objectID, description string) error {
	return tx.AppendActivity(ctx, models.ActivityEntry{
		ID:          uuid.NewString(),
		ActorID:     actor.UserID,
		Action:      action,
		ObjectType:  objectType,
		ObjectID:    objectID,
		Description: description,
		CreatedAt:   e.now(),
	})
}

func (e *Engine) requireModerator(actor Actor) error {
	if !actor.IsModerator() {
		return ErrForbidden("Moderator role required")
	}
	return nil
}

func (e *Engine) requireUser(actor Actor) error {
	if actor.Anonymous() {
		return ErrForbidden("Authentication required")
	}
	return nil
}

func strPtr(value string) *string {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}
