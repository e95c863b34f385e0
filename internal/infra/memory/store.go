// Package memory provides an in-memory implementation of the lead, ledger,
// webinar and course repositories. It backs the test suites and the
// STORE_BACKEND=memory mode of the API.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

var (
	_ entity.LeadRepositoryInterface    = (*LeadRepository)(nil)
	_ entity.LedgerRepositoryInterface  = (*LedgerRepository)(nil)
	_ entity.WebinarRepositoryInterface = (*WebinarRepository)(nil)
	_ entity.CourseRepositoryInterface  = (*CourseRepository)(nil)
)

// Store holds every table behind one RWMutex, so each repository call is a
// single atomic step with respect to every other call.
type Store struct {
	mu sync.RWMutex

	leads        map[string]*entity.Lead
	byPhone      map[string]string
	installments map[string]entity.FeeInstallment
	byLead       map[string]map[string]struct{}
	webinars     map[string]entity.Webinar
	courses      map[string]entity.Course

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		leads:        make(map[string]*entity.Lead),
		byPhone:      make(map[string]string),
		installments: make(map[string]entity.FeeInstallment),
		byLead:       make(map[string]map[string]struct{}),
		webinars:     make(map[string]entity.Webinar),
		courses:      make(map[string]entity.Course),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Tests use it to control created_at ordering.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Leads() *LeadRepository       { return &LeadRepository{s: s} }
func (s *Store) Ledger() *LedgerRepository    { return &LedgerRepository{s: s} }
func (s *Store) Webinars() *WebinarRepository { return &WebinarRepository{s: s} }
func (s *Store) Courses() *CourseRepository   { return &CourseRepository{s: s} }

// checkRefs mirrors the foreign keys of the SQL schema.
func (s *Store) checkRefs(webinarID, courseID string) error {
	if webinarID != "" {
		if _, ok := s.webinars[webinarID]; !ok {
			return fmt.Errorf("%w: webinar %s does not exist", entity.ErrConstraintViolation, webinarID)
		}
	}
	if courseID != "" {
		if _, ok := s.courses[courseID]; !ok {
			return fmt.Errorf("%w: course %s does not exist", entity.ErrConstraintViolation, courseID)
		}
	}
	return nil
}

// view returns a copy of the lead with the join-only fields filled.
func (s *Store) view(l *entity.Lead) entity.Lead {
	out := *l
	if l.WebinarID != nil {
		if w, ok := s.webinars[*l.WebinarID]; ok {
			out.WebinarTitle = w.Title
			out.EventType = w.EventType
		}
	}
	if l.CourseID != nil {
		if c, ok := s.courses[*l.CourseID]; ok {
			out.CourseName = c.Name
		}
	}
	return out
}

func (s *Store) sumFees(leadID string) decimal.Decimal {
	total := decimal.Zero
	for id := range s.byLead[leadID] {
		total = total.Add(s.installments[id].Amount)
	}
	return total
}

type LeadRepository struct {
	s *Store
}

func (r *LeadRepository) UpsertBatch(ctx context.Context, candidates []entity.MergeCandidate, override bool) ([]entity.UpsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range candidates {
		if err := s.checkRefs(c.WebinarID, c.CourseID); err != nil {
			return nil, fmt.Errorf("upsert lead %s: %w", c.PhoneKey, err)
		}
	}

	// One timestamp per batch, the way NOW() is fixed for a transaction.
	now := s.now()
	outcomes := make([]entity.UpsertOutcome, 0, len(candidates))

	for _, c := range candidates {
		if id, ok := s.byPhone[c.PhoneKey]; ok {
			lead := s.leads[id]
			lead.Merge(c, override)
			lead.UpdatedAt = now
			outcomes = append(outcomes, entity.UpsertOutcome{LeadID: id, PhoneKey: c.PhoneKey})
			continue
		}

		lead := entity.NewLeadFromCandidate(uuid.NewString(), c, now)
		s.leads[lead.ID] = lead
		s.byPhone[lead.PhoneKey] = lead.ID
		outcomes = append(outcomes, entity.UpsertOutcome{LeadID: lead.ID, PhoneKey: c.PhoneKey, Inserted: true})
	}
	return outcomes, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, entity.ErrNotFound)
	}
	out := r.s.view(l)
	return &out, nil
}

func (r *LeadRepository) FindByPhoneKey(ctx context.Context, phoneKey string) (*entity.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.byPhone[phoneKey]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", phoneKey, entity.ErrNotFound)
	}
	out := r.s.view(r.s.leads[id])
	return &out, nil
}

func (r *LeadRepository) Update(ctx context.Context, id string, p entity.LeadPatch) (*entity.Lead, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leads[id]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", id, entity.ErrNotFound)
	}

	if p.Phone != nil && *p.Phone != cur.PhoneKey {
		if _, taken := s.byPhone[*p.Phone]; taken {
			return nil, fmt.Errorf("%w: phone %s already belongs to another lead", entity.ErrConstraintViolation, *p.Phone)
		}
	}
	var webinarID, courseID string
	if p.WebinarID != nil {
		webinarID = *p.WebinarID
	}
	if p.CourseID != nil {
		courseID = *p.CourseID
	}
	if err := s.checkRefs(webinarID, courseID); err != nil {
		return nil, err
	}

	now := s.now()
	l := *cur
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Phone != nil {
		l.PhoneKey = *p.Phone
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.City != nil {
		l.City = *p.City
	}
	if p.Experience != nil {
		l.Experience = *p.Experience
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.CampaignSource != nil {
		l.CampaignSource = *p.CampaignSource
	}
	if p.AssignedTo != nil {
		l.AssignedTo = nonEmpty(*p.AssignedTo)
	}
	if p.CourseID != nil {
		l.CourseID = nonEmpty(*p.CourseID)
	}
	if p.WebinarID != nil {
		l.WebinarID = nonEmpty(*p.WebinarID)
	}
	if p.FollowUpNotes != nil {
		l.FollowUpNotes = *p.FollowUpNotes
	}
	if p.ClearNextFollowUp {
		l.NextFollowUpDate = nil
	} else if p.NextFollowUpDate != nil {
		d := entity.DateOnly(*p.NextFollowUpDate)
		l.NextFollowUpDate = &d
	}
	if p.LastFeedback != nil && *p.LastFeedback != cur.LastFeedback {
		l.LastFeedback = *p.LastFeedback
		l.FeedbackDate = &now
	}
	l.UpdatedAt = now

	if l.PhoneKey != cur.PhoneKey {
		delete(s.byPhone, cur.PhoneKey)
		s.byPhone[l.PhoneKey] = id
	}
	s.leads[id] = &l

	out := s.view(&l)
	return &out, nil
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.leads[id]
	if !ok {
		return fmt.Errorf("lead %s: %w", id, entity.ErrNotFound)
	}
	for instID := range s.byLead[id] {
		delete(s.installments, instID)
	}
	delete(s.byLead, id)
	delete(s.byPhone, l.PhoneKey)
	delete(s.leads, id)
	return nil
}

func (s *Store) matches(l *entity.Lead, f entity.SearchFilter, q, digits string) bool {
	if q != "" {
		hit := strings.Contains(strings.ToLower(l.Name), q) || strings.Contains(strings.ToLower(l.Email), q)
		if digits != "" {
			hit = hit || strings.Contains(l.PhoneKey, digits)
		} else {
			hit = hit || strings.Contains(l.PhoneKey, q)
		}
		if !hit {
			return false
		}
	}
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.Source != "" && l.CampaignSource != f.Source {
		return false
	}
	if f.WebinarID != "" && (l.WebinarID == nil || *l.WebinarID != f.WebinarID) {
		return false
	}
	if f.Category != "" && f.Category != entity.CategoryAll {
		if l.WebinarID == nil {
			return false
		}
		w, ok := s.webinars[*l.WebinarID]
		if !ok || w.EventType != string(f.Category) {
			return false
		}
	}
	return true
}


func (r *LeadRepository) Search(ctx context.Context, q entity.SearchQuery) (*entity.SearchResult, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.ToLower(strings.TrimSpace(q.Filter.Query))
	digits, _ := entity.PhoneQueryDigits(text)

	var hits []*entity.Lead
	for _, l := range s.leads {
		if s.matches(l, q.Filter, text, digits) {
			hits = append(hits, l)
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].PhoneKey < hits[j].PhoneKey
	})

	result := &entity.SearchResult{Rows: []entity.Lead{}, TotalCount: int64(len(hits))}
	if q.Offset < 0 || q.Offset >= len(hits) {
		return result, nil
	}
	end := len(hits)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	for _, l := range hits[q.Offset:end] {
		result.Rows = append(result.Rows, s.view(l))
	}
	return result, nil
}

func (r *LeadRepository) Stats(ctx context.Context) (*entity.DashboardStats, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &entity.DashboardStats{Revenue: decimal.Zero, Campaigns: map[string]int64{}}
	for _, l := range s.leads {
		stats.Total++
		switch l.Status {
		case entity.StatusHot:
			stats.Hot++
		case entity.StatusEnrolled:
			stats.Enrolled++
			stats.Revenue = stats.Revenue.Add(l.FeesPaid)
		}
		src := l.CampaignSource
		if src == "" {
			src = entity.OrganicSource
		}
		stats.Campaigns[src]++
	}
	return stats, nil
}

func (r *LeadRepository) DueFollowUps(ctx context.Context, day time.Time) ([]entity.Lead, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := entity.DateOnly(day)
	var out []entity.Lead
	for _, l := range s.leads {
		if l.NextFollowUpDate == nil || !l.NextFollowUpDate.Equal(target) {
			continue
		}
		switch l.Status {
		case entity.StatusDead, entity.StatusConverted, entity.StatusEnrolled:
			continue
		}
		out = append(out, s.view(l))
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := assignee(out[i]), assignee(out[j])
		if ai != aj {
			// Unassigned leads sort last.
			if ai == "" || aj == "" {
				return aj == ""
			}
			return ai < aj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func assignee(l entity.Lead) string {
	if l.AssignedTo == nil {
		return ""
	}
	return *l.AssignedTo
}

type LedgerRepository struct {
	s *Store
}

// checkFeesPaid mirrors the numeric overflow Postgres raises on fees_paid.
func checkFeesPaid(total decimal.Decimal) error {
	if total.GreaterThan(entity.MaxFeesPaid) {
		return fmt.Errorf("%w: fees_paid %s out of range", entity.ErrInvalidAmount, total.String())
	}
	return nil
}

func (r *LedgerRepository) AddInstallment(ctx context.Context, inst *entity.FeeInstallment) (*entity.LedgerResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[inst.LeadID]
	if !ok {
		return nil, fmt.Errorf("lead %s: %w", inst.LeadID, entity.ErrNotFound)
	}
	if _, dup := s.installments[inst.ID]; dup {
		return nil, fmt.Errorf("%w: installment %s already exists", entity.ErrConstraintViolation, inst.ID)
	}
	if err := checkFeesPaid(s.sumFees(inst.LeadID).Add(inst.Amount)); err != nil {
		return nil, err
	}

	s.installments[inst.ID] = *inst
	if s.byLead[inst.LeadID] == nil {
		s.byLead[inst.LeadID] = make(map[string]struct{})
	}
	s.byLead[inst.LeadID][inst.ID] = struct{}{}

	lead.FeesPaid = s.sumFees(inst.LeadID)
	lead.UpdatedAt = s.now()

	stored := *inst
	return &entity.LedgerResult{Installment: &stored, LeadID: inst.LeadID, FeesPaid: lead.FeesPaid}, nil
}

func (r *LedgerRepository) UpdateInstallment(ctx context.Context, id string, amount decimal.Decimal) (*entity.LedgerResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.installments[id]
	if !ok {
		return nil, fmt.Errorf("installment %s: %w", id, entity.ErrNotFound)
	}
	if err := checkFeesPaid(s.sumFees(inst.LeadID).Sub(inst.Amount).Add(amount)); err != nil {
		return nil, err
	}
	inst.Amount = amount
	s.installments[id] = inst

	lead := s.leads[inst.LeadID]
	lead.FeesPaid = s.sumFees(inst.LeadID)
	lead.UpdatedAt = s.now()

	return &entity.LedgerResult{Installment: &inst, LeadID: inst.LeadID, FeesPaid: lead.FeesPaid}, nil
}

func (r *LedgerRepository) DeleteInstallment(ctx context.Context, id string) (*entity.LedgerResult, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.installments[id]
	if !ok {
		return nil, fmt.Errorf("installment %s: %w", id, entity.ErrNotFound)
	}
	delete(s.installments, id)
	delete(s.byLead[inst.LeadID], id)

	lead := s.leads[inst.LeadID]
	lead.FeesPaid = s.sumFees(inst.LeadID)
	lead.UpdatedAt = s.now()

	return &entity.LedgerResult{LeadID: inst.LeadID, FeesPaid: lead.FeesPaid}, nil
}

func (r *LedgerRepository) ListInstallments(ctx context.Context, leadID string) ([]entity.FeeInstallment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []entity.FeeInstallment{}
	for id := range s.byLead[leadID] {
		out = append(out, s.installments[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

type WebinarRepository struct {
	s *Store
}

func (r *WebinarRepository) Create(ctx context.Context, w *entity.Webinar) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, dup := r.s.webinars[w.ID]; dup {
		return fmt.Errorf("%w: webinar %s already exists", entity.ErrConstraintViolation, w.ID)
	}
	r.s.webinars[w.ID] = *w
	return nil
}

func (r *WebinarRepository) FindByID(ctx context.Context, id string) (*entity.Webinar, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.webinars[id]
	if !ok {
		return nil, fmt.Errorf("webinar %s: %w", id, entity.ErrNotFound)
	}
	return &w, nil
}

func (r *WebinarRepository) FindActive(ctx context.Context) (*entity.Webinar, error) {
	all, _ := r.List(ctx)
	for _, w := range all {
		if w.Status == entity.WebinarActive {
			return &w, nil
		}
	}
	return nil, fmt.Errorf("active webinar: %w", entity.ErrNotFound)
}

func (r *WebinarRepository) List(ctx context.Context) ([]entity.Webinar, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Webinar, 0, len(r.s.webinars))
	for _, w := range r.s.webinars {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *WebinarRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.webinars[id]
	if !ok {
		return fmt.Errorf("webinar %s: %w", id, entity.ErrNotFound)
	}
	w.Status = status
	r.s.webinars[id] = w
	return nil
}

type CourseRepository struct {
	s *Store
}

func (r *CourseRepository) Create(ctx context.Context, c *entity.Course) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, dup := r.s.courses[c.ID]; dup {
		return fmt.Errorf("%w: course %s already exists", entity.ErrConstraintViolation, c.ID)
	}
	r.s.courses[c.ID] = *c
	return nil
}

func (r *CourseRepository) List(ctx context.Context) ([]entity.Course, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.Course, 0, len(r.s.courses))
	for _, c := range r.s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Price.Equal(out[j].Price) {
			return out[i].Price.LessThan(out[j].Price)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
