package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

type WebinarUseCase struct {
	Webinars entity.WebinarRepositoryInterface
	Courses  entity.CourseRepositoryInterface
	Logger   *zap.Logger
}

func NewWebinarUseCase(webinars entity.WebinarRepositoryInterface, courses entity.CourseRepositoryInterface, logger *zap.Logger) *WebinarUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebinarUseCase{Webinars: webinars, Courses: courses, Logger: logger}
}

func (uc *WebinarUseCase) CreateWebinar(ctx context.Context, input CreateWebinarInput) (*entity.Webinar, error) {
	if err := joinValidation(ValidateCreateWebinarInput(input)); err != nil {
		return nil, err
	}
	date, _ := parseDate(input.Date)

	w, err := entity.NewWebinar(input.Title, input.EventType, date, input.Time)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if input.Status != "" {
		w.Status = input.Status
	}

	if err := uc.Webinars.Create(ctx, w); err != nil {
		return nil, classify(err)
	}
	uc.Logger.Info("webinar created", zap.String("webinar_id", w.ID), zap.String("status", w.Status))
	return w, nil
}

func (uc *WebinarUseCase) ListWebinars(ctx context.Context) ([]entity.Webinar, error) {
	out, err := uc.Webinars.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (uc *WebinarUseCase) GetWebinar(ctx context.Context, id string) (*entity.Webinar, error) {
	if !isValidID(id) {
		return nil, notFound("webinar", id)
	}
	w, err := uc.Webinars.FindByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return w, nil
}

func (uc *WebinarUseCase) ActiveWebinar(ctx context.Context) (*entity.Webinar, error) {
	w, err := uc.Webinars.FindActive(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return w, nil
}

func (uc *WebinarUseCase) UpdateWebinarStatus(ctx context.Context, id, status string) error {
	if !isValidID(id) {
		return notFound("webinar", id)
	}
	if !isValidWebinarStatus(status) {
		return validationError("status: must be active, completed or draft")
	}
	if err := uc.Webinars.UpdateStatus(ctx, id, status); err != nil {
		return classify(err)
	}
	uc.Logger.Info("webinar status changed", zap.String("webinar_id", id), zap.String("status", status))
	return nil
}

func (uc *WebinarUseCase) CreateCourse(ctx context.Context, input CreateCourseInput) (*entity.Course, error) {
	c, err := entity.NewCourse(input.Name, input.Price)
	if err != nil {
		return nil, validationError(err.Error())
	}
	if err := uc.Courses.Create(ctx, c); err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (uc *WebinarUseCase) ListCourses(ctx context.Context) ([]entity.Course, error) {
	out, err := uc.Courses.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}
