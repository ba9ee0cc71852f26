package httpapi

import (
	"net/http"
	"time"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type BanBody struct {
	Permanent bool       `json:"permanent"`
	Until     *time.Time `json:"until"`
	Days      int        `json:"days"`
	Reason    string     `json:"reason"`
}

type QuotaBody struct {
	Remaining int `json:"remaining"`
}

type PhotoLimitBody struct {
	LimitBytes int64 `json:"limitBytes"`
}

func (s *Server) MyLimits(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.DailyLimitsRequest{UserID: CurrentActor(r).UserID}, nil)
}

func (s *Server) MyRestrictions(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.RestrictionsRequest{UserID: CurrentActor(r).UserID}, nil)
}

func (s *Server) UserLimits(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.DailyLimitsRequest{UserID: chi.URLParam(r, "userId")}, nil)
}

func (s *Server) UserRestrictions(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.RestrictionsRequest{UserID: chi.URLParam(r, "userId")}, nil)
}

func (s *Server) CheckRestriction(w http.ResponseWriter, r *http.Request) {
	req := services.CheckRestrictionRequest{
		UserID:   chi.URLParam(r, "userId"),
		Category: services.RestrictionCategory(r.URL.Query().Get("category")),
	}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) BanUser(w http.ResponseWriter, r *http.Request) {
	var body BanBody
	if !decodeOptional(w, r, &body) {
		return
	}
	req := services.BanRequest{
		UserID:    chi.URLParam(r, "userId"),
		Permanent: body.Permanent,
		Until:     body.Until,
		Days:      body.Days,
		Reason:    body.Reason,
	}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) UnbanUser(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.UnbanRequest{UserID: chi.URLParam(r, "userId")}, nil)
}

func (s *Server) ToggleRestriction(w http.ResponseWriter, r *http.Request) {
	req := services.ToggleRestrictionRequest{
		UserID:   chi.URLParam(r, "userId"),
		Category: services.RestrictionCategory(chi.URLParam(r, "category")),
	}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) SetQuota(w http.ResponseWriter, r *http.Request) {
	var body QuotaBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.SetQuotaRequest{
		UserID:     chi.URLParam(r, "userId"),
		QuotaClass: models.QuotaClass(chi.URLParam(r, "quotaClass")),
		Remaining:  body.Remaining,
	}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) ResetQuota(w http.ResponseWriter, r *http.Request) {
	req := services.ResetQuotaRequest{
		UserID:     chi.URLParam(r, "userId"),
		QuotaClass: models.QuotaClass(chi.URLParam(r, "quotaClass")),
	}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) SetPhotoLimit(w http.ResponseWriter, r *http.Request) {
	var body PhotoLimitBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.SetPhotoLimitRequest{UserID: chi.URLParam(r, "userId"), LimitBytes: body.LimitBytes}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) ResetPhotoLimit(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.ResetPhotoLimitRequest{UserID: chi.URLParam(r, "userId")}, nil)
}

func (s *Server) ResetPhotoUsage(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.ResetPhotoUsageRequest{UserID: chi.URLParam(r, "userId")}, nil)
}
