package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

// LeadAdminUseCase covers direct edits of a single lead and the dashboard
// aggregates.
type LeadAdminUseCase struct {
	Repo       entity.LeadRepositoryInterface
	Normalizer entity.IdentityNormalizer
	Logger     *zap.Logger
}

func NewLeadAdminUseCase(repo entity.LeadRepositoryInterface, normalizer entity.IdentityNormalizer, logger *zap.Logger) *LeadAdminUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadAdminUseCase{Repo: repo, Normalizer: normalizer, Logger: logger}
}

func (uc *LeadAdminUseCase) GetLead(ctx context.Context, id string) (*entity.Lead, error) {
	if !isValidID(id) {
		return nil, notFound("lead", id)
	}
	lead, err := uc.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return lead, nil
}

func (uc *LeadAdminUseCase) UpdateLeadFields(ctx context.Context, id string, input UpdateLeadInput) (*entity.Lead, error) {
	if !isValidID(id) {
		return nil, notFound("lead", id)
	}

	patch, err := uc.buildPatch(input)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, validationError("no fields to update")
	}

	lead, err := uc.Repo.Update(ctx, id, patch)
	if err != nil {
		uc.Logger.Warn("lead update failed", zap.String("lead_id", id), zap.Error(err))
		return nil, classify(err)
	}

	uc.Logger.Info("lead updated", zap.String("lead_id", id), zap.String("status", string(lead.Status)))
	return lead, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func (uc *LeadAdminUseCase) buildPatch(in UpdateLeadInput) (entity.LeadPatch, error) {
	patch := entity.LeadPatch{
		Name:           trimmed(in.Name),
		Email:          trimmed(in.Email),
		City:           trimmed(in.City),
		Experience:     trimmed(in.Experience),
		CampaignSource: trimmed(in.CampaignSource),
		AssignedTo:     trimmed(in.AssignedTo),
		FollowUpNotes:  in.FollowUpNotes,
		LastFeedback:   in.LastFeedback,
	}

	if in.Phone != nil {
		key, err := uc.Normalizer.Normalize(*in.Phone)
		if err != nil {
			return patch, classify(err)
		}
		patch.Phone = &key
	}

	if in.Status != nil {
		st, err := entity.ParseLeadStatus(*in.Status)
		if err != nil {
			return patch, classify(err)
		}
		patch.Status = &st
	}

	if in.CourseID != nil {
		v := strings.TrimSpace(*in.CourseID)
		if v != "" && !isValidID(v) {
			return patch, validationError("course_id: must be a valid id")
		}
		patch.CourseID = &v
	}
	if in.WebinarID != nil {
		v := strings.TrimSpace(*in.WebinarID)
		if v != "" && !isValidID(v) {
			return patch, validationError("webinar_id: must be a valid id")
		}
		patch.WebinarID = &v
	}

	if in.NextFollowUpDate != nil {
		if strings.TrimSpace(*in.NextFollowUpDate) == "" {
			patch.ClearNextFollowUp = true
		} else {
			d, err := parseDate(*in.NextFollowUpDate)
			if err != nil {
				return patch, validationError("next_follow_up_date: must be a valid date (YYYY-MM-DD)")
			}
			d = entity.DateOnly(d)
			patch.NextFollowUpDate = &d
		}
	}

	return patch, nil
}

// DeleteLead removes the lead together with its installments.
func (uc *LeadAdminUseCase) DeleteLead(ctx context.Context, id string) error {
	if !isValidID(id) {
		return notFound("lead", id)
	}
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return classify(err)
	}
	uc.Logger.Info("lead deleted", zap.String("lead_id", id))
	return nil
}

func (uc *LeadAdminUseCase) DashboardStats(ctx context.Context) (*entity.DashboardStats, error) {
	stats, err := uc.Repo.Stats(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return stats, nil
}
