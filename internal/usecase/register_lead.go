package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/queue"
)

const DirectSource = "Direct"

// RegisterLeadUseCase handles the public registration form. It ends in the
// same upsert path as bulk imports, so the merge policy is identical.
type RegisterLeadUseCase struct {
	Upsert   *UpsertLeadsUseCase
	Webinars entity.WebinarRepositoryInterface
	Events   LeadEventPublisher
	Logger   *zap.Logger
}

func NewRegisterLeadUseCase(upsert *UpsertLeadsUseCase, webinars entity.WebinarRepositoryInterface, events LeadEventPublisher, logger *zap.Logger) *RegisterLeadUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterLeadUseCase{
		Upsert:   upsert,
		Webinars: webinars,
		Events:   events,
		Logger:   logger,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (uc *RegisterLeadUseCase) Execute(ctx context.Context, input RegisterLeadInput) (*RegisterLeadOutput, error) {
	if err := joinValidation(ValidateRegisterLeadInput(input)); err != nil {
		return nil, err
	}

	key, err := uc.Upsert.Normalizer.Normalize(input.Phone)
	if err != nil {
		return nil, classify(err)
	}

	webinar, err := uc.resolveWebinar(ctx, input.WebinarID)
	if err != nil {
		return nil, err
	}
	var webinarID, webinarTitle string
	if webinar != nil {
		webinarID, webinarTitle = webinar.ID, webinar.Title
	}

	out, err := uc.Upsert.Execute(ctx, UpsertLeadsInput{
		Candidates: []entity.Candidate{{
			Name:       input.Name,
			Contact:    input.Phone,
			Email:      input.Email,
			City:       input.City,
			Experience: input.Experience,
			Source:     firstNonEmpty(input.Source, input.UTMSource, DirectSource),
			WebinarID:  webinarID,
		}},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Outcomes) == 0 {
		return nil, validationError(out.Rejected[0].Reason)
	}
	outcome := out.Outcomes[0]

	event := queue.LeadEvent{
		Type:         queue.EventRegistration,
		LeadID:       outcome.LeadID,
		Name:         strings.TrimSpace(input.Name),
		Phone:        key,
		Email:        strings.TrimSpace(input.Email),
		WebinarID:    webinarID,
		WebinarTitle: webinarTitle,
		NewLead:      outcome.Inserted,
		OccurredAt:   time.Now().UTC(),
	}
	if uc.Events != nil {
		if err := uc.Events.PublishLeadEvent(ctx, event); err != nil {
			// The lead is already stored; notification is best effort.
			uc.Logger.Warn("registration event not published", zap.String("lead_id", outcome.LeadID), zap.Error(err))
		}
	}

	uc.Logger.Info("lead registered",
		zap.String("lead_id", outcome.LeadID),
		zap.Bool("inserted", outcome.Inserted),
		zap.String("webinar_id", webinarID),
	)

	return &RegisterLeadOutput{
		LeadID:    outcome.LeadID,
		Phone:     key,
		Inserted:  outcome.Inserted,
		WebinarID: webinarID,
	}, nil
}

// resolveWebinar returns the requested webinar, or the active one when none
// was given. A registration without any active webinar is still accepted.
func (uc *RegisterLeadUseCase) resolveWebinar(ctx context.Context, id string) (*entity.Webinar, error) {
	if uc.Webinars == nil {
		return nil, nil
	}

	if id = strings.TrimSpace(id); id != "" {
		w, err := uc.Webinars.FindByID(ctx, id)
		if errors.Is(err, entity.ErrNotFound) {
			return nil, validationError("webinar_id: unknown webinar")
		}
		if err != nil {
			return nil, classify(err)
		}
		return w, nil
	}

	w, err := uc.Webinars.FindActive(ctx)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		uc.Logger.Warn("active webinar lookup failed", zap.Error(err))
		return nil, nil
	}
	return w, nil
}
