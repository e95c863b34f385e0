package usecase

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

type UpsertLeadsInput struct {
	Candidates []entity.Candidate `json:"candidates"`
	Override   bool               `json:"override"`
}

// RejectedRow is a candidate whose contact could not be normalized or whose
// fields were malformed. Row is the zero-based index in the input batch.
type RejectedRow struct {
	Row     int    `json:"row"`
	Contact string `json:"contact"`
	Name    string `json:"name,omitempty"`
	Reason  string `json:"reason"`
}

type UpsertLeadsOutput struct {
	Inserted int           `json:"inserted"`
	Merged   int           `json:"merged"`
	Rejected []RejectedRow `json:"rejected"`

	Outcomes []entity.UpsertOutcome `json:"-"`
}

// AmountText accepts an amount sent either as a JSON number or a JSON string.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	*a = AmountText(b)
	return nil
}

type AddInstallmentInput struct {
	LeadID      string     `json:"-"`
	Amount      AmountText `json:"amount"`
	PaymentDate string     `json:"payment_date,omitempty"`
}

type UpdateInstallmentInput struct {
	ID     string     `json:"-"`
	Amount AmountText `json:"amount"`
}

type SearchLeadsInput struct {
	Query     string `json:"q"`
	Status    string `json:"status"`
	Source    string `json:"source"`
	WebinarID string `json:"webinar_id"`
	Category  string `json:"category"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

type SearchLeadsOutput struct {
	Rows       []entity.Lead `json:"rows"`
	TotalCount int64         `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int64         `json:"total_pages"`
}

// UpdateLeadInput is a partial edit. Absent fields are left untouched;
// NextFollowUpDate "" clears the date.
type UpdateLeadInput struct {
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	Email            *string `json:"email"`
	City             *string `json:"city"`
	Experience       *string `json:"experience"`
	Status           *string `json:"lead_status"`
	CampaignSource   *string `json:"campaign_source"`
	AssignedTo       *string `json:"assigned_to"`
	CourseID         *string `json:"course_id"`
	WebinarID        *string `json:"webinar_id"`
	FollowUpNotes    *string `json:"follow_up_notes"`
	NextFollowUpDate *string `json:"next_follow_up_date"`
	LastFeedback     *string `json:"last_feedback"`
}

type RegisterLeadInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	City       string `json:"city,omitempty"`
	Experience string `json:"experience,omitempty"`
	WebinarID  string `json:"webinar_id,omitempty"`
	Source     string `json:"source,omitempty"`
	UTMSource  string `json:"utm_source,omitempty"`
}

type RegisterLeadOutput struct {
	LeadID    string `json:"lead_id"`
	Phone     string `json:"phone"`
	Inserted  bool   `json:"inserted"`
	WebinarID string `json:"webinar_id,omitempty"`
}

type CreateWebinarInput struct {
	Title     string `json:"title"`
	EventType string `json:"event_type"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    string `json:"status,omitempty"`
}

type CreateCourseInput struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
