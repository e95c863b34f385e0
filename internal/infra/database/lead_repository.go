package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
	tx *TxRunner
}

func NewLeadRepository(db *sql.DB, tx *TxRunner) *LeadRepository {
	return &LeadRepository{DB: db, tx: tx}
}

// upsertLeadSQL carries the merge policy: human-set fields survive unless
// $13 (override) is true, empty fields are filled, and a status is only
// replaced while the lead is still cold.
const upsertLeadSQL = `
	INSERT INTO leads (
		id, phone_key, name, email, city, experience, lead_status, campaign_source,
		assigned_to, webinar_id, course_id, follow_up_notes, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, ''), 'cold'), $8,
		NULLIF($9, ''), NULLIF($10, '')::uuid, NULLIF($11, '')::uuid, $12, NOW(), NOW()
	)
	ON CONFLICT (phone_key) DO UPDATE SET
		name = CASE
			WHEN $13 AND EXCLUDED.name <> '' THEN EXCLUDED.name
			ELSE COALESCE(NULLIF(leads.name, ''), EXCLUDED.name) END,
		email = CASE
			WHEN $13 AND EXCLUDED.email <> '' THEN EXCLUDED.email
			ELSE COALESCE(NULLIF(leads.email, ''), EXCLUDED.email) END,
		city = CASE
			WHEN $13 AND EXCLUDED.city <> '' THEN EXCLUDED.city
			ELSE COALESCE(NULLIF(leads.city, ''), EXCLUDED.city) END,
		experience = CASE
			WHEN $13 AND EXCLUDED.experience <> '' THEN EXCLUDED.experience
			ELSE COALESCE(NULLIF(leads.experience, ''), EXCLUDED.experience) END,
		campaign_source = CASE
			WHEN $13 AND EXCLUDED.campaign_source <> '' THEN EXCLUDED.campaign_source
			ELSE COALESCE(NULLIF(leads.campaign_source, ''), EXCLUDED.campaign_source) END,
		lead_status = CASE
			WHEN $7 = '' THEN leads.lead_status
			WHEN $13 THEN EXCLUDED.lead_status
			WHEN leads.lead_status = 'cold' THEN EXCLUDED.lead_status
			ELSE leads.lead_status END,
		assigned_to = CASE
			WHEN $13 AND EXCLUDED.assigned_to IS NOT NULL THEN EXCLUDED.assigned_to
			ELSE COALESCE(NULLIF(leads.assigned_to, ''), EXCLUDED.assigned_to) END,
		webinar_id = CASE
			WHEN $13 AND EXCLUDED.webinar_id IS NOT NULL THEN EXCLUDED.webinar_id
			ELSE COALESCE(leads.webinar_id, EXCLUDED.webinar_id) END,
		course_id = CASE
			WHEN $13 AND EXCLUDED.course_id IS NOT NULL THEN EXCLUDED.course_id
			ELSE COALESCE(leads.course_id, EXCLUDED.course_id) END,
		follow_up_notes = CASE
			WHEN $13 AND EXCLUDED.follow_up_notes <> '' THEN EXCLUDED.follow_up_notes
			ELSE COALESCE(NULLIF(leads.follow_up_notes, ''), EXCLUDED.follow_up_notes) END,
		updated_at = NOW()
	RETURNING id, (xmax = 0) AS inserted
`

// UpsertBatch applies every candidate in a single transaction. Candidates are
// expected sorted by phone key so concurrent batches lock rows in the same order.
func (r *LeadRepository) UpsertBatch(ctx context.Context, candidates []entity.MergeCandidate, override bool) ([]entity.UpsertOutcome, error) {
	var outcomes []entity.UpsertOutcome

	err := r.tx.WithTx(ctx, nil, func(tx *sql.Tx) error {
		outcomes = make([]entity.UpsertOutcome, 0, len(candidates))
		for _, c := range candidates {
			out := entity.UpsertOutcome{PhoneKey: c.PhoneKey}
			err := tx.QueryRowContext(ctx, upsertLeadSQL,
				uuid.NewString(),
				c.PhoneKey,
				c.Name,
				c.Email,
				c.City,
				c.Experience,
				string(c.Status),
				c.Source,
				c.Assignee,
				c.WebinarID,
				c.CourseID,
				c.FollowUpNotes,
				override,
			).Scan(&out.LeadID, &out.Inserted)
			if err != nil {
				return fmt.Errorf("upsert lead %s: %w", c.PhoneKey, err)
			}
			outcomes = append(outcomes, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

const leadColumns = `
	l.id, l.phone_key, l.name, l.email, l.city, l.experience, l.lead_status, l.campaign_source,
	l.assigned_to, l.course_id, l.webinar_id, l.follow_up_notes, l.next_follow_up_date,
	l.last_feedback, l.feedback_date, l.fees_paid, l.created_at, l.updated_at,
	COALESCE(w.title, ''), COALESCE(w.event_type, ''), COALESCE(c.name, '')`

const leadFrom = `
	FROM leads l
	LEFT JOIN webinars w ON w.id = l.webinar_id
	LEFT JOIN courses c ON c.id = l.course_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var l entity.Lead
	err := row.Scan(
		&l.ID,
		&l.PhoneKey,
		&l.Name,
		&l.Email,
		&l.City,
		&l.Experience,
		&l.Status,
		&l.CampaignSource,
		&l.AssignedTo,
		&l.CourseID,
		&l.WebinarID,
		&l.FollowUpNotes,
		&l.NextFollowUpDate,
		&l.LastFeedback,
		&l.FeedbackDate,
		&l.FeesPaid,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.WebinarTitle,
		&l.EventType,
		&l.CourseName,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	return r.findOne(ctx, r.DB, "l.id = $1", id)
}

func (r *LeadRepository) FindByPhoneKey(ctx context.Context, phoneKey string) (*entity.Lead, error) {
	return r.findOne(ctx, r.DB, "l.phone_key = $1", phoneKey)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *LeadRepository) findOne(ctx context.Context, q queryer, cond string, arg any) (*entity.Lead, error) {
	query := "SELECT " + leadColumns + leadFrom + " WHERE " + cond
	lead, err := scanLead(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lead %v: %w", arg, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

// Update applies the patch and returns the stored row. Changing last_feedback
// stamps feedback_date.
func (r *LeadRepository) Update(ctx context.Context, id string, patch entity.LeadPatch) (*entity.Lead, error) {
	var sets []string
	var args []any
	set := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}

	if patch.Name != nil {
		set("name = $%d", *patch.Name)
	}
	if patch.Phone != nil {
		set("phone_key = $%d", *patch.Phone)
	}
	if patch.Email != nil {
		set("email = $%d", *patch.Email)
	}
	if patch.City != nil {
		set("city = $%d", *patch.City)
	}
	if patch.Experience != nil {
		set("experience = $%d", *patch.Experience)
	}
	if patch.Status != nil {
		set("lead_status = $%d", string(*patch.Status))
	}
	if patch.CampaignSource != nil {
		set("campaign_source = $%d", *patch.CampaignSource)
	}
	if patch.AssignedTo != nil {
		set("assigned_to = NULLIF($%d, '')", *patch.AssignedTo)
	}
	if patch.CourseID != nil {
		set("course_id = NULLIF($%d, '')::uuid", *patch.CourseID)
	}
	if patch.WebinarID != nil {
		set("webinar_id = NULLIF($%d, '')::uuid", *patch.WebinarID)
	}
	if patch.FollowUpNotes != nil {
		set("follow_up_notes = $%d", *patch.FollowUpNotes)
	}
	if patch.ClearNextFollowUp {
		sets = append(sets, "next_follow_up_date = NULL")
	} else if patch.NextFollowUpDate != nil {
		set("next_follow_up_date = $%d", entity.DateOnly(*patch.NextFollowUpDate))
	}
	if patch.LastFeedback != nil {
		// SET expressions see the old row, so the comparison uses the previous feedback.
		set("feedback_date = CASE WHEN last_feedback IS DISTINCT FROM $%d THEN NOW() ELSE feedback_date END", *patch.LastFeedback)
		sets = append(sets, fmt.Sprintf("last_feedback = $%d", len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	var lead *entity.Lead
	err := r.tx.WithTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("lead %s: %w", id, entity.ErrNotFound)
		}
		lead, err = r.findOne(ctx, tx, "l.id = $1", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// Delete removes the lead; its installments go with it through the FK cascade.
func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("lead %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildLeadWhere returns the predicate shared by the count and the page
// query, and whether it needs the webinars join.
func buildLeadWhere(f entity.SearchFilter) (string, []any, bool) {
	var conds []string
	var args []any
	needsWebinar := false

	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		text := arg("%" + escapeLike(q) + "%")
		phone := text
		if d, ok := entity.PhoneQueryDigits(q); ok {
			phone = arg("%" + d + "%")
		}
		conds = append(conds, fmt.Sprintf(
			"(l.name ILIKE $%d OR l.email ILIKE $%d OR l.phone_key LIKE $%d)", text, text, phone))
	}
	if f.Status != "" {
		conds = append(conds, fmt.Sprintf("l.lead_status = $%d", arg(string(f.Status))))
	}
	if f.Source != "" {
		conds = append(conds, fmt.Sprintf("l.campaign_source = $%d", arg(f.Source)))
	}
	if f.WebinarID != "" {
		conds = append(conds, fmt.Sprintf("l.webinar_id = $%d", arg(f.WebinarID)))
	}
	if f.Category != "" && f.Category != entity.CategoryAll {
		needsWebinar = true
		conds = append(conds, fmt.Sprintf("w.event_type = $%d", arg(string(f.Category))))
	}

	if len(conds) == 0 {
		return "", args, needsWebinar
	}
	return " WHERE " + strings.Join(conds, " AND "), args, needsWebinar
}

// Search counts and pages the filtered set inside one read-only snapshot so
// the total always matches the rows it paginates.
func (r *LeadRepository) Search(ctx context.Context, q entity.SearchQuery) (*entity.SearchResult, error) {
	where, args, needsWebinar := buildLeadWhere(q.Filter)

	countQuery := "SELECT COUNT(*) FROM leads l"
	if needsWebinar {
		countQuery += " JOIN webinars w ON w.id = l.webinar_id"
	}
	countQuery += where

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	pageQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY l.created_at DESC, l.phone_key ASC LIMIT $%d OFFSET $%d",
		leadColumns, leadFrom, where, len(args)+1, len(args)+2)

	result := &entity.SearchResult{}
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.tx.WithTx(ctx, opts, func(tx *sql.Tx) error {
		result.Rows = result.Rows[:0]
		if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&result.TotalCount); err != nil {
			return fmt.Errorf("count leads: %w", err)
		}
		if result.TotalCount == 0 || int64(q.Offset) >= result.TotalCount {
			return nil
		}

		rows, err := tx.QueryContext(ctx, pageQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("search leads: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			lead, err := scanLead(rows)
			if err != nil {
				return fmt.Errorf("scan lead: %w", err)
			}
			result.Rows = append(result.Rows, *lead)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if result.Rows == nil {
		result.Rows = []entity.Lead{}
	}
	return result, nil
}

func (r *LeadRepository) Stats(ctx context.Context) (*entity.DashboardStats, error) {
	stats := &entity.DashboardStats{Campaigns: map[string]int64{}}

	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE lead_status = 'hot'),
			COUNT(*) FILTER (WHERE lead_status = 'enrolled'),
			COALESCE(SUM(fees_paid) FILTER (WHERE lead_status = 'enrolled'), 0)
		FROM leads
	`).Scan(&stats.Total, &stats.Hot, &stats.Enrolled, &stats.Revenue)
	if err != nil {
		return nil, fmt.Errorf("lead totals: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(campaign_source, ''), $1) AS source, COUNT(*)
		FROM leads
		GROUP BY 1
	`, entity.OrganicSource)
	if err != nil {
		return nil, fmt.Errorf("campaign counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scan campaign count: %w", err)
		}
		stats.Campaigns[source] = n
	}
	return stats, rows.Err()
}

var closedStatuses = []string{
	string(entity.StatusDead),
	string(entity.StatusConverted),
	string(entity.StatusEnrolled),
}

// DueFollowUps lists open leads whose next follow-up falls on day.
func (r *LeadRepository) DueFollowUps(ctx context.Context, day time.Time) ([]entity.Lead, error) {
	query := "SELECT " + leadColumns + leadFrom + `
		WHERE l.next_follow_up_date = $1 AND l.lead_status <> ALL($2)
		ORDER BY l.assigned_to NULLS LAST, l.name`

	rows, err := r.DB.QueryContext(ctx, query, entity.DateOnly(day), pq.Array(closedStatuses))
	if err != nil {
		return nil, fmt.Errorf("due follow-ups: %w", err)
	}
	defer rows.Close()

	var out []entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *lead)
	}
	return out, rows.Err()
}
