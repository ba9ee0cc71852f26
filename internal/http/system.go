package httpapi

import (
	"net/http"
	"sort"

	"citymap-backend-go/internal/services"
)

type PolicyDTO struct {
	DuplicateRadiusMeters float64 `json:"duplicateRadiusMeters"`
	DailyQuotaDefault     int     `json:"dailyQuotaDefault"`
	PhotoLimitBytes       int64   `json:"photoLimitBytes"`
	ResolvedGraceHours    float64 `json:"resolvedGraceHours"`
	AutoFlagVotes         int     `json:"autoFlagVotes"`
	VerificationVotes     int     `json:"verificationVotes"`
	Timezone              string  `json:"timezone"`
}

type SystemResponse struct {
	Host         services.HostSample `json:"host"`
	EventClients int                 `json:"eventClients"`
	Operations   []string            `json:"operations"`
	Policy       PolicyDTO           `json:"policy"`
}

func (s *Server) SystemSample(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if s.Hub != nil {
		clients = s.Hub.Clients()
	}
	ops := []string{}
	for _, op := range s.Engine.Operations() {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)
	policy := s.Engine.Policy()
	WriteJSON(w, http.StatusOK, SystemResponse{
		Host:         services.CaptureHostSample(s.Config.MediaStoragePath),
		EventClients: clients,
		Operations:   ops,
		Policy: PolicyDTO{
			DuplicateRadiusMeters: policy.DuplicateRadiusMeters,
			DailyQuotaDefault:     policy.DailyQuotaDefault,
			PhotoLimitBytes:       policy.PhotoLimitBytes,
			ResolvedGraceHours:    policy.ResolvedGrace.Hours(),
			AutoFlagVotes:         policy.AutoFlagVotes,
			VerificationVotes:     policy.VerificationVotes,
			Timezone:              policy.Location.String(),
		},
	})
}
