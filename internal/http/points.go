package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type ReasonBody struct {
	Reason string `json:"reason"`
}

type EditBody struct {
	Fields    models.PointFields `json:"fields"`
	Reason    string             `json:"reason"`
	Immediate bool               `json:"immediate"`
}

type DeletionBody struct {
	Reason    string `json:"reason"`
	Immediate bool   `json:"immediate"`
}

type VoteBody struct {
	Direction models.VoteDirection `json:"direction"`
}

type PointListResponse struct {
	Items  []PointViewDTO `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func renderPoint(result interface{}) interface{} {
	return toPointDTO(result.(models.Point))
}

func renderOverlay(result interface{}) interface{} {
	return toOverlayDTO(result.(models.Overlay))
}

func renderResolve(result interface{}) interface{} {
	return toResolveDTO(result.(services.ResolveResult))
}

func (s *Server) Categories(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"groups":       services.ReportCategoryGroups(),
		"contentTypes": []models.ContentClass{models.ClassReport, models.ClassCuriosity, models.ClassPlace},
	})
}

func (s *Server) ListPoints(w http.ResponseWriter, r *http.Request) {
	s.listPoints(w, r, "")
}

func (s *Server) MyPoints(w http.ResponseWriter, r *http.Request) {
	s.listPoints(w, r, CurrentActor(r).UserID)
}

func (s *Server) listPoints(w http.ResponseWriter, r *http.Request, authorID string) {
	query := r.URL.Query()
	req := services.ListPointsRequest{
		ContentClass: models.ContentClass(strings.TrimSpace(query.Get("contentClass"))),
		Category:     strings.TrimSpace(query.Get("category")),
		AuthorID:     authorID,
		Limit:        parseInt(query.Get("limit"), 100),
		Offset:       parseOffset(query.Get("offset")),
	}
	for _, status := range parseCSV(query.Get("status")) {
		req.Statuses = append(req.Statuses, models.PointStatus(status))
	}
	if authorID != "" && len(req.Statuses) == 0 {
		req.Statuses = []models.PointStatus{models.StatusPendingReview, models.StatusPublished, models.StatusRejected}
	}
	s.dispatch(w, r, http.StatusOK, req, func(result interface{}) interface{} {
		views := result.([]services.PointView)
		items := make([]PointViewDTO, 0, len(views))
		for _, view := range views {
			items = append(items, toPointViewDTO(view))
		}
		return PointListResponse{Items: items, Limit: req.Limit, Offset: req.Offset}
	})
}

func (s *Server) GetPoint(w http.ResponseWriter, r *http.Request) {
	req := services.GetPointRequest{PointID: chi.URLParam(r, "pointId")}
	s.dispatch(w, r, http.StatusOK, req, func(result interface{}) interface{} {
		return toPointViewDTO(result.(services.PointView))
	})
}

func (s *Server) PointHistory(w http.ResponseWriter, r *http.Request) {
	req := services.PointHistoryRequest{PointID: chi.URLParam(r, "pointId")}
	s.dispatch(w, r, http.StatusOK, req, func(result interface{}) interface{} {
		return map[string]interface{}{"items": toOverlayDTOs(result.([]models.Overlay))}
	})
}

func (s *Server) SubmitPoint(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.dispatch(w, r, http.StatusCreated, req, renderPoint)
}

func (s *Server) ProposeEdit(w http.ResponseWriter, r *http.Request) {
	var body EditBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.ProposeEditRequest{
		PointID:   chi.URLParam(r, "pointId"),
		Fields:    body.Fields,
		Reason:    body.Reason,
		Immediate: body.Immediate,
	}
	s.dispatch(w, r, http.StatusCreated, req, renderOverlay)
}

func (s *Server) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	var body DeletionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.RequestDeletionRequest{
		PointID:   chi.URLParam(r, "pointId"),
		Reason:    body.Reason,
		Immediate: body.Immediate,
	}
	s.dispatch(w, r, http.StatusCreated, req, renderOverlay)
}

func (s *Server) CastVote(w http.ResponseWriter, r *http.Request) {
	var body VoteBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.CastVoteRequest{PointID: chi.URLParam(r, "pointId"), Direction: body.Direction}
	s.dispatch(w, r, http.StatusOK, req, nil)
}

func (s *Server) FlagPoint(w http.ResponseWriter, r *http.Request) {
	var body ReasonBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.FlagPointRequest{PointID: chi.URLParam(r, "pointId"), Reason: body.Reason}
	result, err := s.Engine.Dispatch(r.Context(), CurrentActor(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	flag := result.(services.FlagResult)
	status := http.StatusOK
	if flag.Created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, flag)
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func parseOffset(raw string) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func parseCSV(raw string) []string {
	items := []string{}
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			items = append(items, value)
		}
	}
	return items
}
