package httpapi

import (
	"net/http"

	"citymap-backend-go/internal/config"
	"citymap-backend-go/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	Engine *services.Engine
	Config config.Config
	Tokens services.TokenService
	Hub    *services.EventHub
	Photos services.PhotoIntake
	Log    *zap.Logger
}

func NewServer(engine *services.Engine, cfg config.Config, hub *services.EventHub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Engine: engine,
		Config: cfg,
		Tokens: cfg.Tokens(),
		Hub:    hub,
		Photos: services.PhotoIntake{
			Engine:   engine,
			BasePath: cfg.MediaStoragePath,
			MaxBytes: cfg.PhotoMaxUploadBytes,
			Log:      log.With(zap.String("module", "photos")),
		},
		Log: log.With(zap.String("module", "http")),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.Log))
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/public", func(pub chi.Router) {
			pub.Use(OptionalAuth(s.Tokens))
			pub.Get("/categories", s.Categories)
			pub.Get("/points", s.ListPoints)
			pub.Get("/points/{pointId}", s.GetPoint)
		})

		api.Group(func(authed chi.Router) {
			authed.Use(WithAuth(s.Tokens))
			authed.Post("/points", s.SubmitPoint)
			authed.Get("/points/{pointId}/history", s.PointHistory)
			authed.Post("/points/{pointId}/edits", s.ProposeEdit)
			authed.Post("/points/{pointId}/deletion", s.RequestDeletion)
			authed.Post("/points/{pointId}/votes", s.CastVote)
			authed.Post("/points/{pointId}/flags", s.FlagPoint)
			authed.Post("/photos", s.UploadPhoto)
			authed.Get("/me/points", s.MyPoints)
			authed.Get("/me/limits", s.MyLimits)
			authed.Get("/me/restrictions", s.MyRestrictions)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Tokens))
			admin.Use(RequireModerator)
			admin.Get("/queue", s.ModerationQueue)
			admin.Get("/activity", s.ActivityLog)
			admin.Get("/system", s.SystemSample)
			admin.Post("/maintenance", s.RunMaintenance)
			admin.Post("/purge", s.PurgeExpired)

			admin.Route("/points/{pointId}", func(point chi.Router) {
				point.Post("/approve", s.ApprovePoint)
				point.Post("/reject", s.RejectPoint)
				point.Post("/edit/approve", s.ApproveEdit)
				point.Post("/edit/reject", s.RejectEdit)
				point.Post("/deletion/approve", s.ApproveDeletion)
				point.Post("/deletion/reject", s.RejectDeletion)
				point.Put("/report-status", s.ChangeReportStatus)
				point.Post("/resolve", s.ResolveReports)
				point.Post("/edit-and-resolve", s.EditAndResolve)
			})

			admin.Route("/users/{userId}", func(user chi.Router) {
				user.Get("/restrictions", s.UserRestrictions)
				user.Get("/restrictions/check", s.CheckRestriction)
				user.Post("/ban", s.BanUser)
				user.Delete("/ban", s.UnbanUser)
				user.Post("/restrictions/{category}", s.ToggleRestriction)
				user.Get("/limits", s.UserLimits)
				user.Put("/quotas/{quotaClass}", s.SetQuota)
				user.Delete("/quotas/{quotaClass}", s.ResetQuota)
				user.Put("/photo-limit", s.SetPhotoLimit)
				user.Delete("/photo-limit", s.ResetPhotoLimit)
				user.Delete("/photo-usage", s.ResetPhotoUsage)
			})
		})
	})

	r.Get("/media/photos/{storageKey}", s.PhotoContent)
	r.Get("/ws/events", s.EventsSocket)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// dispatch runs one engine operation on behalf of the caller and renders
// either the mapped result or the service error.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, status int, req services.Request, render func(interface{}) interface{}) {
	result, err := s.Engine.Dispatch(r.Context(), CurrentActor(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if render != nil {
		WriteJSON(w, status, render(result))
		return
	}
	WriteJSON(w, status, result)
}
