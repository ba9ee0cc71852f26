package httpapi

import (
	"net/http"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
)

type ReportStatusBody struct {
	Status models.ReportStatus `json:"status"`
}

type ResolveBody struct {
	Action services.ResolveAction `json:"action"`
	Reason string                 `json:"reason"`
	Fields *models.PointFields    `json:"fields"`
}

type EditAndResolveBody struct {
	Fields models.PointFields `json:"fields"`
	Reason string             `json:"reason"`
}

// decodeOptional accepts an empty body for endpoints where every field is
// optional.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decodeJSON(w, r, dst)
}

func (s *Server) ApprovePoint(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.ApproveRequest{PointID: chi.URLParam(r, "pointId")}, renderPoint)
}

func (s *Server) RejectPoint(w http.ResponseWriter, r *http.Request) {
	var body ReasonBody
	if !decodeOptional(w, r, &body) {
		return
	}
	req := services.RejectRequest{PointID: chi.URLParam(r, "pointId"), Reason: body.Reason}
	s.dispatch(w, r, http.StatusOK, req, renderPoint)
}

func (s *Server) ApproveEdit(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.ApproveEditRequest{PointID: chi.URLParam(r, "pointId")}, renderPoint)
}

func (s *Server) RejectEdit(w http.ResponseWriter, r *http.Request) {
	var body ReasonBody
	if !decodeOptional(w, r, &body) {
		return
	}
	req := services.RejectEditRequest{PointID: chi.URLParam(r, "pointId"), Reason: body.Reason}
	s.dispatch(w, r, http.StatusOK, req, renderOverlay)
}

func (s *Server) ApproveDeletion(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.ApproveDeletionRequest{PointID: chi.URLParam(r, "pointId")}, renderPoint)
}

func (s *Server) RejectDeletion(w http.ResponseWriter, r *http.Request) {
	var body ReasonBody
	if !decodeOptional(w, r, &body) {
		return
	}
	req := services.RejectDeletionRequest{PointID: chi.URLParam(r, "pointId"), Reason: body.Reason}
	s.dispatch(w, r, http.StatusOK, req, renderOverlay)
}

func (s *Server) ChangeReportStatus(w http.ResponseWriter, r *http.Request) {
	var body ReportStatusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.ChangeReportStatusRequest{PointID: chi.URLParam(r, "pointId"), Status: body.Status}
	s.dispatch(w, r, http.StatusOK, req, renderPoint)
}

func (s *Server) ResolveReports(w http.ResponseWriter, r *http.Request) {
	var body ResolveBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.ResolveReportsRequest{
		PointID: chi.URLParam(r, "pointId"),
		Action:  body.Action,
		Reason:  body.Reason,
		Fields:  body.Fields,
	}
	s.dispatch(w, r, http.StatusOK, req, renderResolve)
}

func (s *Server) EditAndResolve(w http.ResponseWriter, r *http.Request) {
	var body EditAndResolveBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req := services.EditAndResolveRequest{PointID: chi.URLParam(r, "pointId"), Fields: body.Fields, Reason: body.Reason}
	s.dispatch(w, r, http.StatusOK, req, renderResolve)
}

func (s *Server) ModerationQueue(w http.ResponseWriter, r *http.Request) {
	req := services.ModerationQueueRequest{Limit: parseInt(r.URL.Query().Get("limit"), 50)}
	s.dispatch(w, r, http.StatusOK, req, func(result interface{}) interface{} {
		queue := result.(services.ModerationQueue)
		return QueueDTO{
			PendingPoints:   toPointDTOs(queue.PendingPoints),
			PendingChanges:  toOverlayDTOs(queue.PendingChanges),
			ReportedPoints:  toPointDTOs(queue.ReportedPoints),
			ExpiringReports: toPointDTOs(queue.ExpiringReports),
		}
	})
}

func (s *Server) ActivityLog(w http.ResponseWriter, r *http.Request) {
	req := services.ActivityLogRequest{Limit: parseInt(r.URL.Query().Get("limit"), 100)}
	s.dispatch(w, r, http.StatusOK, req, func(result interface{}) interface{} {
		return map[string]interface{}{"items": toActivityDTOs(result.([]models.ActivityEntry))}
	})
}

func (s *Server) PurgeExpired(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.PurgeExpiredRequest{}, nil)
}

func (s *Server) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, http.StatusOK, services.RunMaintenanceRequest{}, nil)
}
