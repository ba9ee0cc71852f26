package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type ContentClass string

const (
	ClassReport    ContentClass = "report"
	ClassCuriosity ContentClass = "curiosity"
	ClassPlace     ContentClass = "place"
)

type PointStatus string

const (
	StatusPendingReview PointStatus = "pending_review"
	StatusPublished     PointStatus = "published"
	StatusRejected      PointStatus = "rejected"
	StatusDeleted       PointStatus = "deleted"
)

type ReportStatus string

const (
	ReportAdded                    ReportStatus = "added"
	ReportNeedsBetterDocumentation ReportStatus = "needs_better_documentation"
	ReportReported                 ReportStatus = "reported"
	ReportResolved                 ReportStatus = "resolved"
)

type OverlayKind string

const (
	OverlayEdit     OverlayKind = "edit"
	OverlayDeletion OverlayKind = "deletion"
)

type OverlayStatus string

const (
	OverlayPending  OverlayStatus = "pending"
	OverlayApproved OverlayStatus = "approved"
	OverlayRejected OverlayStatus = "rejected"
)

type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

type QuotaClass string

const (
	QuotaPlacesAndCuriosities QuotaClass = "places_and_curiosities"
	QuotaReports              QuotaClass = "reports"
)

type BanState string

const (
	BanNone      BanState = "none"
	BanTemporary BanState = "temporary"
	BanPermanent BanState = "permanent"
)

type Point struct {
	ID               string        `db:"id"`
	CaseNumber       *int64        `db:"case_number"`
	CaseID           *string       `db:"case_id"`
	ContentClass     ContentClass  `db:"content_class"`
	Category         *string       `db:"category"`
	Title            string        `db:"title"`
	Content          string        `db:"content"`
	Lat              float64       `db:"lat"`
	Lng              float64       `db:"lng"`
	Address          *string       `db:"address"`
	Website          *string       `db:"website"`
	Phone            *string       `db:"phone"`
	Status           PointStatus   `db:"status"`
	ReportStatus     *ReportStatus `db:"report_status"`
	ResolvedDeleteAt *time.Time    `db:"resolved_delete_at"`
	VotesCount       int           `db:"votes_count"`
	ReportsCount     int           `db:"reports_count"`
	AuthorID         string        `db:"author_id"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
	DeletedAt        *time.Time    `db:"deleted_at"`
}

// PointFields is the editable public content of a point. A nil field means
// "not part of this set".
type PointFields struct {
	Title    *string  `json:"title,omitempty"`
	Content  *string  `json:"content,omitempty"`
	Category *string  `json:"category,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Address  *string  `json:"address,omitempty"`
	Website  *string  `json:"website,omitempty"`
	Phone    *string  `json:"phone,omitempty"`
}

func (f PointFields) Empty() bool {
	return f.Title == nil && f.Content == nil && f.Category == nil && f.Lat == nil &&
		f.Lng == nil && f.Address == nil && f.Website == nil && f.Phone == nil
}

func (f PointFields) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *PointFields) Scan(src interface{}) error {
	switch value := src.(type) {
	case nil:
		*f = PointFields{}
		return nil
	case []byte:
		return json.Unmarshal(value, f)
	case string:
		return json.Unmarshal([]byte(value), f)
	default:
		return errors.New("point fields: unsupported column type")
	}
}

type Overlay struct {
	ID                     string        `db:"id"`
	PointID                string        `db:"point_id"`
	Kind                   OverlayKind   `db:"kind"`
	Status                 OverlayStatus `db:"status"`
	PrevFields             PointFields   `db:"prev_fields"`
	NewFields              PointFields   `db:"new_fields"`
	Reason                 *string       `db:"reason"`
	RequestedBy            string        `db:"requested_by"`
	SubmittedAt            time.Time     `db:"submitted_at"`
	ClearReportsOnApproval bool          `db:"clear_reports_on_approval"`
	ResolvedBy             *string       `db:"resolved_by"`
	ResolvedAt             *time.Time    `db:"resolved_at"`
	ResolutionReason       *string       `db:"resolution_reason"`
}

type Vote struct {
	PointID   string        `db:"point_id"`
	UserID    string        `db:"user_id"`
	Direction VoteDirection `db:"direction"`
	CreatedAt time.Time     `db:"created_at"`
}

type ReportFlag struct {
	ID         string    `db:"id"`
	PointID    string    `db:"point_id"`
	ReporterID string    `db:"reporter_id"`
	Reason     string    `db:"reason"`
	CreatedAt  time.Time `db:"created_at"`
}

type DailyQuota struct {
	UserID     string     `db:"user_id"`
	Day        string     `db:"day"`
	QuotaClass QuotaClass `db:"quota_class"`
	Remaining  int        `db:"remaining"`
	// Allowance caps what refunds may restore for the day.
	Allowance  int        `db:"allowance"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

type PhotoQuota struct {
	UserID     string    `db:"user_id"`
	Month      string    `db:"month"`
	UsedBytes  int64     `db:"used_bytes"`
	LimitBytes int64     `db:"limit_bytes"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type Restriction struct {
	UserID      string     `db:"user_id"`
	BanState    BanState   `db:"ban_state"`
	BannedUntil *time.Time `db:"banned_until"`
	BanReason   *string    `db:"ban_reason"`
	UpdatedAt   time.Time  `db:"updated_at"`
	Categories  []string   `db:"-"`
}

type ActivityEntry struct {
	ID          string    `db:"id"`
	ActorID     string    `db:"actor_id"`
	Action      string    `db:"action"`
	ObjectType  string    `db:"object_type"`
	ObjectID    string    `db:"object_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}
