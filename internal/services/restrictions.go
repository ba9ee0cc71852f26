package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"citymap-backend-go/internal/models"
)

type RestrictionCategory string

const (
	RestrictVoting      RestrictionCategory = "voting"
	RestrictAddPlaces   RestrictionCategory = "add_places"
	RestrictAddEvents   RestrictionCategory = "add_events"
	RestrictAddTrivia   RestrictionCategory = "add_trivia"
	RestrictEditPlaces  RestrictionCategory = "edit_places"
	RestrictPhotoUpload RestrictionCategory = "photo_upload"
)

var restrictionCategories = map[RestrictionCategory]bool{
	RestrictVoting:      true,
	RestrictAddPlaces:   true,
	RestrictAddEvents:   true,
	RestrictAddTrivia:   true,
	RestrictEditPlaces:  true,
	RestrictPhotoUpload: true,
}

func ParseRestrictionCategory(raw string) (RestrictionCategory, error) {
	category := RestrictionCategory(raw)
	if !restrictionCategories[category] {
		return "", ErrValidation(fmt.Sprintf("Unknown restriction %q", raw))
	}
	return category, nil
}

type GuardOutcome string

const (
	GuardAllowed    GuardOutcome = "allowed"
	GuardBanned     GuardOutcome = "banned"
	GuardRestricted GuardOutcome = "restricted"
)

type GuardDecision struct {
	Outcome   GuardOutcome        `json:"outcome"`
	Until     *time.Time          `json:"until,omitempty"`
	Permanent bool                `json:"permanent,omitempty"`
	Category  RestrictionCategory `json:"category,omitempty"`
}

// Evaluate applies ban and restriction state to one action category. An
// empty category only checks the ban. A temporary ban that has expired
// counts as no ban.
func Evaluate(r models.Restriction, category RestrictionCategory, now time.Time) GuardDecision {
	switch r.BanState {
	case models.BanPermanent:
		return GuardDecision{Outcome: GuardBanned, Permanent: true}
	case models.BanTemporary:
		if r.BannedUntil != nil && now.Before(*r.BannedUntil) {
			until := *r.BannedUntil
			return GuardDecision{Outcome: GuardBanned, Until: &until}
		}
	}
	if category != "" {
		for _, c := range r.Categories {
			if RestrictionCategory(c) == category {
				return GuardDecision{Outcome: GuardRestricted, Category: category}
			}
		}
	}
	return GuardDecision{Outcome: GuardAllowed}
}

func (d GuardDecision) Err() error {
	switch d.Outcome {
	case GuardBanned:
		return ErrBanned(d)
	case GuardRestricted:
		return ErrRestricted(d.Category)
	}
	return nil
}

func (e *Engine) loadRestriction(ctx context.Context, tx Tx, userID string) (models.Restriction, error) {
	r, err := tx.GetRestriction(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return models.Restriction{UserID: userID, BanState: models.BanNone}, nil
	}
	return r, err
}

// guard must run before any mutating step. Moderators are never blocked.
func (e *Engine) guard(ctx context.Context, tx Tx, actor Actor, categories ...RestrictionCategory) error {
	if err := e.requireUser(actor); err != nil {
		return err
	}
	if actor.IsModerator() {
		return nil
	}
	r, err := e.loadRestriction(ctx, tx, actor.UserID)
	if err != nil {
		return err
	}
	now := e.now()
	if err := Evaluate(r, "", now).Err(); err != nil {
		return err
	}
	for _, category := range categories {
		if err := Evaluate(r, category, now).Err(); err != nil {
			return err
		}
	}
	return nil
}

type CheckRestrictionRequest struct {
	UserID   string              `json:"userId"`
	Category RestrictionCategory `json:"category,omitempty"`
}

// CheckRestriction reports what the guard would decide for a user.
func (e *Engine) CheckRestriction(ctx context.Context, actor Actor, req CheckRestrictionRequest) (GuardDecision, error) {
	if req.UserID != actor.UserID {
		if err := e.requireModerator(actor); err != nil {
			return GuardDecision{}, err
		}
	}
	var decision GuardDecision
	err := e.read(ctx, OpCheckRestriction, func(tx Tx) error {
		r, err := e.loadRestriction(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		decision = Evaluate(r, req.Category, e.now())
		return nil
	})
	return decision, err
}

type RestrictionView struct {
	UserID       string                `json:"userId"`
	BanState     models.BanState       `json:"banState"`
	BannedUntil  *time.Time            `json:"bannedUntil,omitempty"`
	BanReason    *string               `json:"banReason,omitempty"`
	Restrictions []RestrictionCategory `json:"restrictions"`
}

func restrictionView(r models.Restriction, now time.Time) RestrictionView {
	view := RestrictionView{
		UserID:       r.UserID,
		BanState:     r.BanState,
		BannedUntil:  r.BannedUntil,
		BanReason:    r.BanReason,
		Restrictions: []RestrictionCategory{},
	}
	if view.BanState == "" {
		view.BanState = models.BanNone
	}
	if r.BanState == models.BanTemporary && (r.BannedUntil == nil || !now.Before(*r.BannedUntil)) {
		view.BanState = models.BanNone
		view.BannedUntil = nil
	}
	for _, c := range r.Categories {
		view.Restrictions = append(view.Restrictions, RestrictionCategory(c))
	}
	return view
}

type RestrictionsRequest struct {
	UserID string `json:"userId"`
}

func (e *Engine) GetRestrictions(ctx context.Context, actor Actor, req RestrictionsRequest) (RestrictionView, error) {
	userID := req.UserID
	if userID != actor.UserID {
		if err := e.requireModerator(actor); err != nil {
			return RestrictionView{}, err
		}
	}
	var view RestrictionView
	err := e.read(ctx, OpGetRestrictions, func(tx Tx) error {
		r, err := e.loadRestriction(ctx, tx, userID)
		if err != nil {
			return err
		}
		view = restrictionView(r, e.now())
		return nil
	})
	return view, err
}

type BanRequest struct {
	UserID    string     `json:"userId"`
	Permanent bool       `json:"permanent"`
	Until     *time.Time `json:"until,omitempty"`
	Days      int        `json:"days,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

func (e *Engine) Ban(ctx context.Context, actor Actor, req BanRequest) (RestrictionView, error) {
	if err := e.requireModerator(actor); err != nil {
		return RestrictionView{}, err
	}
	if req.UserID == "" {
		return RestrictionView{}, ErrValidation("User is required")
	}
	if req.UserID == actor.UserID {
		return RestrictionView{}, ErrValidation("Cannot ban yourself")
	}
	now := e.now()
	var until *time.Time
	if !req.Permanent {
		switch {
		case req.Until != nil:
			if !req.Until.After(now) {
				return RestrictionView{}, ErrValidation("Ban end must be in the future")
			}
			until = timePtr(req.Until.UTC())
		case req.Days < 0:
			return RestrictionView{}, ErrValidation("Ban length must be positive")
		case req.Days > 0:
			until = timePtr(now.AddDate(0, 0, req.Days))
		default:
			until = timePtr(now.Add(e.policy.DefaultBanDuration))
		}
	}
	var view RestrictionView
	err := e.write(ctx, OpBan, func(tx Tx, u *unit) error {
		r, err := e.loadRestriction(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		r.UserID = req.UserID
		r.UpdatedAt = now
		r.BannedUntil = until
		r.BanReason = nil
		if req.Reason != "" {
			r.BanReason = strPtr(req.Reason)
		}
		description := "temporary ban"
		if req.Permanent {
			r.BanState = models.BanPermanent
			description = "permanent ban"
		} else {
			r.BanState = models.BanTemporary
			description += " until " + until.Format(time.RFC3339)
		}
		if err := tx.SaveRestriction(ctx, r); err != nil {
			return err
		}
		view = restrictionView(r, now)
		u.emit(e.event(EventUserBanned, actor, "", map[string]interface{}{"userId": req.UserID}))
		return e.record(ctx, tx, actor, "ban_user", "user", req.UserID, description)
	})
	return view, err
}

type UnbanRequest struct {
	UserID string `json:"userId"`
}

func (e *Engine) Unban(ctx context.Context, actor Actor, req UnbanRequest) (RestrictionView, error) {
	userID := req.UserID
	if err := e.requireModerator(actor); err != nil {
		return RestrictionView{}, err
	}
	if userID == "" {
		return RestrictionView{}, ErrValidation("User is required")
	}
	var view RestrictionView
	err := e.write(ctx, OpUnban, func(tx Tx, u *unit) error {
		r, err := e.loadRestriction(ctx, tx, userID)
		if err != nil {
			return err
		}
		r.UserID = userID
		r.BanState = models.BanNone
		r.BannedUntil = nil
		r.BanReason = nil
		r.UpdatedAt = e.now()
		if err := tx.SaveRestriction(ctx, r); err != nil {
			return err
		}
		view = restrictionView(r, e.now())
		u.emit(e.event(EventUserUnbanned, actor, "", map[string]interface{}{"userId": userID}))
		return e.record(ctx, tx, actor, "unban_user", "user", userID, "ban lifted")
	})
	return view, err
}

type ToggleRestrictionRequest struct {
	UserID   string              `json:"userId"`
	Category RestrictionCategory `json:"category"`
}

// ToggleRestriction flips one category on or off for a user.
func (e *Engine) ToggleRestriction(ctx context.Context, actor Actor, req ToggleRestrictionRequest) (RestrictionView, error) {
	if err := e.requireModerator(actor); err != nil {
		return RestrictionView{}, err
	}
	if req.UserID == "" {
		return RestrictionView{}, ErrValidation("User is required")
	}
	if _, err := ParseRestrictionCategory(string(req.Category)); err != nil {
		return RestrictionView{}, err
	}
	var view RestrictionView
	err := e.write(ctx, OpToggleRestriction, func(tx Tx, u *unit) error {
		r, err := e.loadRestriction(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		r.UserID = req.UserID
		if r.BanState == "" {
			r.BanState = models.BanNone
		}
		next := make([]string, 0, len(r.Categories)+1)
		found := false
		for _, c := range r.Categories {
			if RestrictionCategory(c) == req.Category {
				found = true
				continue
			}
			next = append(next, c)
		}
		action := "remove_restriction"
		if !found {
			next = append(next, string(req.Category))
			action = "add_restriction"
		}
		sort.Strings(next)
		r.Categories = next
		r.UpdatedAt = e.now()
		if err := tx.SaveRestriction(ctx, r); err != nil {
			return err
		}
		view = restrictionView(r, e.now())
		return e.record(ctx, tx, actor, action, "user", req.UserID, string(req.Category))
	})
	return view, err
}
