package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type LeadStatus string

const (
	StatusCold      LeadStatus = "cold"
	StatusWarm      LeadStatus = "warm"
	StatusHot       LeadStatus = "hot"
	StatusConverted LeadStatus = "converted"
	StatusDead      LeadStatus = "dead"
	StatusEnrolled  LeadStatus = "enrolled"
)

func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusCold, StatusWarm, StatusHot, StatusConverted, StatusDead, StatusEnrolled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Lead is a prospect tracked through the funnel. PhoneKey is the normalized
// identity and is unique across all leads.
type Lead struct {
	ID               string          `json:"id"`
	PhoneKey         string          `json:"phone"`
	Name             string          `json:"name"`
	Email            string          `json:"email,omitempty"`
	City             string          `json:"city,omitempty"`
	Experience       string          `json:"experience,omitempty"`
	Status           LeadStatus      `json:"lead_status"`
	CampaignSource   string          `json:"campaign_source,omitempty"`
	AssignedTo       *string         `json:"assigned_to,omitempty"`
	CourseID         *string         `json:"course_id,omitempty"`
	WebinarID        *string         `json:"webinar_id,omitempty"`
	FollowUpNotes    string          `json:"follow_up_notes,omitempty"`
	NextFollowUpDate *time.Time      `json:"next_follow_up_date,omitempty"`
	LastFeedback     string          `json:"last_feedback,omitempty"`
	FeedbackDate     *time.Time      `json:"feedback_date,omitempty"`
	FeesPaid         decimal.Decimal `json:"fees_paid"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Populated by search joins only.
	WebinarTitle string `json:"webinar_title,omitempty"`
	EventType    string `json:"event_type,omitempty"`
	CourseName   string `json:"course_name,omitempty"`
}

// Candidate is one raw record coming from an import adapter or the
// registration endpoint. Contact is not normalized yet.
type Candidate struct {
	Name          string `json:"name"`
	Contact       string `json:"contact"`
	Email         string `json:"email,omitempty"`
	City          string `json:"city,omitempty"`
	Experience    string `json:"experience,omitempty"`
	Status        string `json:"status,omitempty"`
	Source        string `json:"source,omitempty"`
	Assignee      string `json:"assignee,omitempty"`
	WebinarID     string `json:"webinar_id,omitempty"`
	CourseID      string `json:"course_id,omitempty"`
	FollowUpNotes string `json:"follow_up_notes,omitempty"`
}

// MergeCandidate is a candidate after normalization and in-batch folding,
// ready for the store.
type MergeCandidate struct {
	PhoneKey      string
	Name          string
	Email         string
	City          string
	Experience    string
	Status        LeadStatus // empty when the source did not supply one
	Source        string
	Assignee      string
	WebinarID     string
	CourseID      string
	FollowUpNotes string
}

// UpsertOutcome reports what the store did with one MergeCandidate.
type UpsertOutcome struct {
	LeadID   string
	PhoneKey string
	Inserted bool
}

// LeadPatch carries an admin edit. Nil fields are left untouched.
type LeadPatch struct {
	Name             *string
	Phone            *string
	Email            *string
	City             *string
	Experience       *string
	Status           *LeadStatus
	CampaignSource   *string
	AssignedTo       *string
	CourseID         *string
	WebinarID        *string
	FollowUpNotes    *string
	NextFollowUpDate *time.Time
	LastFeedback     *string

	// ClearNextFollowUp removes the follow-up date.
	ClearNextFollowUp bool
}

func (p LeadPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.City == nil &&
		p.Experience == nil && p.Status == nil && p.CampaignSource == nil &&
		p.AssignedTo == nil && p.CourseID == nil && p.WebinarID == nil &&
		p.FollowUpNotes == nil && p.NextFollowUpDate == nil && p.LastFeedback == nil &&
		!p.ClearNextFollowUp
}

type DashboardStats struct {
	Total     int64            `json:"total"`
	Hot       int64            `json:"hot"`
	Enrolled  int64            `json:"enrolled"`
	Revenue   decimal.Decimal  `json:"revenue"`
	Campaigns map[string]int64 `json:"campaigns"`
}

// OrganicSource buckets leads that arrived without a campaign tag.
const OrganicSource = "Organic"

type LeadRepositoryInterface interface {
	// UpsertBatch writes every candidate in one transaction using the merge
	// policy; override lets incoming values replace human-set fields.
	UpsertBatch(ctx context.Context, candidates []MergeCandidate, override bool) ([]UpsertOutcome, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	FindByPhoneKey(ctx context.Context, phoneKey string) (*Lead, error)
	Update(ctx context.Context, id string, patch LeadPatch) (*Lead, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
	Stats(ctx context.Context) (*DashboardStats, error)
	DueFollowUps(ctx context.Context, day time.Time) ([]Lead, error)
}

// NewLeadFromCandidate builds the row inserted when no lead holds the phone key.
func NewLeadFromCandidate(id string, c MergeCandidate, now time.Time) *Lead {
	status := c.Status
	if status == "" {
		status = StatusCold
	}
	return &Lead{
		ID:             id,
		PhoneKey:       c.PhoneKey,
		Name:           c.Name,
		Email:          c.Email,
		City:           c.City,
		Experience:     c.Experience,
		Status:         status,
		CampaignSource: c.Source,
		AssignedTo:     optional(c.Assignee),
		CourseID:       optional(c.CourseID),
		WebinarID:      optional(c.WebinarID),
		FollowUpNotes:  c.FollowUpNotes,
		FeesPaid:       decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Merge folds an incoming candidate into an existing lead. Fields a human
// already set are kept unless override is true, empty fields are filled, a
// status only moves off cold, and fees_paid is never touched.
func (l *Lead) Merge(c MergeCandidate, override bool) {
	l.Name = mergeField(l.Name, c.Name, override)
	l.Email = mergeField(l.Email, c.Email, override)
	l.City = mergeField(l.City, c.City, override)
	l.Experience = mergeField(l.Experience, c.Experience, override)
	l.CampaignSource = mergeField(l.CampaignSource, c.Source, override)
	l.FollowUpNotes = mergeField(l.FollowUpNotes, c.FollowUpNotes, override)
	l.AssignedTo = mergeRef(l.AssignedTo, c.Assignee, override)
	l.WebinarID = mergeRef(l.WebinarID, c.WebinarID, override)
	l.CourseID = mergeRef(l.CourseID, c.CourseID, override)

	if c.Status != "" && (override || l.Status == StatusCold) {
		l.Status = c.Status
	}
}

func mergeField(current, incoming string, override bool) string {
	if override && incoming != "" {
		return incoming
	}
	if current == "" {
		return incoming
	}
	return current
}

func mergeRef(current *string, incoming string, override bool) *string {
	if override && incoming != "" {
		return &incoming
	}
	if current == nil || *current == "" {
		return optional(incoming)
	}
	return current
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
