package usecase

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

const DefaultMaxBatchSize = 5000

type UpsertLeadsUseCase struct {
	Repo         entity.LeadRepositoryInterface
	Normalizer   entity.IdentityNormalizer
	MaxBatchSize int
	Logger       *zap.Logger
}

func NewUpsertLeadsUseCase(repo entity.LeadRepositoryInterface, normalizer entity.IdentityNormalizer, maxBatchSize int, logger *zap.Logger) *UpsertLeadsUseCase {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpsertLeadsUseCase{
		Repo:         repo,
		Normalizer:   normalizer,
		MaxBatchSize: maxBatchSize,
		Logger:       logger,
	}
}

// Execute normalizes and folds the batch, then writes it in one store call.
// Rows that fail normalization are reported and skipped; the store write is
// all or nothing.
func (uc *UpsertLeadsUseCase) Execute(ctx context.Context, input UpsertLeadsInput) (*UpsertLeadsOutput, error) {
	if len(input.Candidates) > uc.MaxBatchSize {
		return nil, &DomainError{
			Code:    CodeBatchTooLarge,
			Message: entity.ErrBatchTooLarge.Error(),
			Err:     entity.ErrBatchTooLarge,
		}
	}

	out := &UpsertLeadsOutput{Rejected: []RejectedRow{}}
	folded := make(map[string]*entity.MergeCandidate)

	for i, c := range input.Candidates {
		mc, err := uc.prepare(c)
		if err != nil {
			out.Rejected = append(out.Rejected, RejectedRow{
				Row:     i,
				Contact: c.Contact,
				Name:    strings.TrimSpace(c.Name),
				Reason:  err.Error(),
			})
			continue
		}

		if prev, ok := folded[mc.PhoneKey]; ok {
			foldCandidate(prev, mc)
			out.Merged++
			continue
		}
		folded[mc.PhoneKey] = &mc
	}

	if len(folded) == 0 {
		uc.Logger.Info("lead batch had nothing to write", zap.Int("rejected", len(out.Rejected)))
		return out, nil
	}

	batch := make([]entity.MergeCandidate, 0, len(folded))
	for _, mc := range folded {
		batch = append(batch, *mc)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].PhoneKey < batch[j].PhoneKey })

	outcomes, err := uc.Repo.UpsertBatch(ctx, batch, input.Override)
	if err != nil {
		uc.Logger.Error("lead batch failed",
			zap.Int("candidates", len(input.Candidates)),
			zap.Int("identities", len(batch)),
			zap.Error(err),
		)
		return nil, classify(err)
	}

	for _, o := range outcomes {
		if o.Inserted {
			out.Inserted++
		} else {
			out.Merged++
		}
	}
	out.Outcomes = outcomes

	uc.Logger.Info("lead batch upserted",
		zap.Int("inserted", out.Inserted),
		zap.Int("merged", out.Merged),
		zap.Int("rejected", len(out.Rejected)),
		zap.Bool("override", input.Override),
	)
	return out, nil
}

func (uc *UpsertLeadsUseCase) prepare(c entity.Candidate) (entity.MergeCandidate, error) {
	key, err := uc.Normalizer.Normalize(c.Contact)
	if err != nil {
		return entity.MergeCandidate{}, err
	}

	var status entity.LeadStatus
	if strings.TrimSpace(c.Status) != "" {
		if status, err = entity.ParseLeadStatus(c.Status); err != nil {
			return entity.MergeCandidate{}, err
		}
	}

	webinarID := strings.TrimSpace(c.WebinarID)
	if webinarID != "" && !isValidID(webinarID) {
		return entity.MergeCandidate{}, ValidationError{"webinar_id", "must be a valid id"}
	}
	courseID := strings.TrimSpace(c.CourseID)
	if courseID != "" && !isValidID(courseID) {
		return entity.MergeCandidate{}, ValidationError{"course_id", "must be a valid id"}
	}

	return entity.MergeCandidate{
		PhoneKey:      key,
		Name:          strings.TrimSpace(c.Name),
		Email:         strings.TrimSpace(c.Email),
		City:          strings.TrimSpace(c.City),
		Experience:    strings.TrimSpace(c.Experience),
		Status:        status,
		Source:        strings.TrimSpace(c.Source),
		Assignee:      strings.TrimSpace(c.Assignee),
		WebinarID:     webinarID,
		CourseID:      courseID,
		FollowUpNotes: strings.TrimSpace(c.FollowUpNotes),
	}, nil
}

// foldCandidate merges a later row for the same identity into an earlier one:
// the last non-empty value of each field wins.
func foldCandidate(dst *entity.MergeCandidate, src entity.MergeCandidate) {
	last := func(cur, next string) string {
		if next != "" {
			return next
		}
		return cur
	}
	dst.Name = last(dst.Name, src.Name)
	dst.Email = last(dst.Email, src.Email)
	dst.City = last(dst.City, src.City)
	dst.Experience = last(dst.Experience, src.Experience)
	dst.Source = last(dst.Source, src.Source)
	dst.Assignee = last(dst.Assignee, src.Assignee)
	dst.WebinarID = last(dst.WebinarID, src.WebinarID)
	dst.CourseID = last(dst.CourseID, src.CourseID)
	dst.FollowUpNotes = last(dst.FollowUpNotes, src.FollowUpNotes)
	if src.Status != "" {
		dst.Status = src.Status
	}
}
