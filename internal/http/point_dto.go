package httpapi

import (
	"time"

	"citymap-backend-go/internal/models"
	"citymap-backend-go/internal/services"
)

type PointDTO struct {
	ID               string     `json:"id"`
	CaseID           *string    `json:"caseId,omitempty"`
	ContentClass     string     `json:"contentClass"`
	Category         *string    `json:"category,omitempty"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Lat              float64    `json:"lat"`
	Lng              float64    `json:"lng"`
	Address          *string    `json:"address,omitempty"`
	Website          *string    `json:"website,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Status           string     `json:"status"`
	ReportStatus     *string    `json:"reportStatus,omitempty"`
	ResolvedDeleteAt *time.Time `json:"resolvedDeleteAt,omitempty"`
	VotesCount       int        `json:"votesCount"`
	ReportsCount     int        `json:"reportsCount"`
	AuthorID         string     `json:"authorId"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type OverlayDTO struct {
	ID                     string             `json:"id"`
	PointID                string             `json:"pointId"`
	Kind                   string             `json:"kind"`
	Status                 string             `json:"status"`
	PrevFields             models.PointFields `json:"prevFields"`
	NewFields              models.PointFields `json:"newFields"`
	Reason                 *string            `json:"reason,omitempty"`
	RequestedBy            string             `json:"requestedBy"`
	SubmittedAt            time.Time          `json:"submittedAt"`
	ClearReportsOnApproval bool               `json:"clearReportsOnApproval,omitempty"`
	ResolvedBy             *string            `json:"resolvedBy,omitempty"`
	ResolvedAt             *time.Time         `json:"resolvedAt,omitempty"`
	ResolutionReason       *string            `json:"resolutionReason,omitempty"`
}

type PointViewDTO struct {
	PointDTO
	Verification    string      `json:"verification,omitempty"`
	MyVote          *string     `json:"myVote,omitempty"`
	PendingEdit     *OverlayDTO `json:"pendingEdit,omitempty"`
	PendingDeletion *OverlayDTO `json:"pendingDeletion,omitempty"`
}

type ActivityDTO struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actorId"`
	Action      string    `json:"action"`
	ObjectType  string    `json:"objectType"`
	ObjectID    string    `json:"objectId"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ResolveDTO struct {
	Point   PointDTO    `json:"point"`
	Overlay *OverlayDTO `json:"overlay,omitempty"`
}

type QueueDTO struct {
	PendingPoints   []PointDTO   `json:"pendingPoints"`
	PendingChanges  []OverlayDTO `json:"pendingChanges"`
	ReportedPoints  []PointDTO   `json:"reportedPoints"`
	ExpiringReports []PointDTO   `json:"expiringReports"`
}

func toPointDTO(p models.Point) PointDTO {
	dto := PointDTO{
		ID:               p.ID,
		CaseID:           p.CaseID,
		ContentClass:     string(p.ContentClass),
		Category:         p.Category,
		Title:            p.Title,
		Content:          p.Content,
		Lat:              p.Lat,
		Lng:              p.Lng,
		Address:          p.Address,
		Website:          p.Website,
		Phone:            p.Phone,
		Status:           string(p.Status),
		ResolvedDeleteAt: p.ResolvedDeleteAt,
		VotesCount:       p.VotesCount,
		ReportsCount:     p.ReportsCount,
		AuthorID:         p.AuthorID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.ReportStatus != nil {
		status := string(*p.ReportStatus)
		dto.ReportStatus = &status
	}
	return dto
}

func toPointDTOs(items []models.Point) []PointDTO {
	out := make([]PointDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toPointDTO(item))
	}
	return out
}

func toOverlayDTO(o models.Overlay) OverlayDTO {
	return OverlayDTO{
		ID:                     o.ID,
		PointID:                o.PointID,
		Kind:                   string(o.Kind),
		Status:                 string(o.Status),
		PrevFields:             o.PrevFields,
		NewFields:              o.NewFields,
		Reason:                 o.Reason,
		RequestedBy:            o.RequestedBy,
		SubmittedAt:            o.SubmittedAt,
		ClearReportsOnApproval: o.ClearReportsOnApproval,
		ResolvedBy:             o.ResolvedBy,
		ResolvedAt:             o.ResolvedAt,
		ResolutionReason:       o.ResolutionReason,
	}
}

func toOverlayDTOPtr(o *models.Overlay) *OverlayDTO {
	if o == nil {
		return nil
	}
	dto := toOverlayDTO(*o)
	return &dto
}

func toOverlayDTOs(items []models.Overlay) []OverlayDTO {
	out := make([]OverlayDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toOverlayDTO(item))
	}
	return out
}

func toPointViewDTO(v services.PointView) PointViewDTO {
	dto := PointViewDTO{
		PointDTO:        toPointDTO(v.Point),
		Verification:    string(v.Verification),
		PendingEdit:     toOverlayDTOPtr(v.PendingEdit),
		PendingDeletion: toOverlayDTOPtr(v.PendingDeletion),
	}
	if v.MyVote != nil {
		vote := string(*v.MyVote)
		dto.MyVote = &vote
	}
	return dto
}

func toActivityDTOs(items []models.ActivityEntry) []ActivityDTO {
	out := make([]ActivityDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ActivityDTO{
			ID:          item.ID,
			ActorID:     item.ActorID,
			Action:      item.Action,
			ObjectType:  item.ObjectType,
			ObjectID:    item.ObjectID,
			Description: item.Description,
			CreatedAt:   item.CreatedAt,
		})
	}
	return out
}

func toResolveDTO(r services.ResolveResult) ResolveDTO {
	return ResolveDTO{Point: toPointDTO(r.Point), Overlay: toOverlayDTOPtr(r.Overlay)}
}
