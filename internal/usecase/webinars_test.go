package usecase_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

func TestWebinarLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := usecase.NewWebinarUseCase(store.Webinars(), store.Courses(), zap.NewNop())

	_, err := uc.ActiveWebinar(ctx)
	assert.Equal(t, usecase.CodeNotFound, usecase.ErrorCode(err))

	older, err := uc.CreateWebinar(ctx, usecase.CreateWebinarInput{Title: "March intro", Date: "2026-03-01", Status: "completed"})
	require.NoError(t, err)
	newer, err := uc.CreateWebinar(ctx, usecase.CreateWebinarInput{Title: "April demo", EventType: "demo", Date: "2026-04-01"})
	require.NoError(t, err)
	assert.Equal(t, entity.WebinarDraft, newer.Status)

	list, err := uc.ListWebinars(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.NoError(t, uc.UpdateWebinarStatus(ctx, newer.ID, entity.WebinarActive))
	active, err := uc.ActiveWebinar(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, active.ID)

	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(uc.UpdateWebinarStatus(ctx, newer.ID, "live")))
	assert.Equal(t, usecase.CodeNotFound, usecase.ErrorCode(uc.UpdateWebinarStatus(ctx, uuid.NewString(), "draft")))
}

func TestCreateWebinarValidation(t *testing.T) {
	uc := usecase.NewWebinarUseCase(memory.NewStore().Webinars(), nil, zap.NewNop())

	_, err := uc.CreateWebinar(context.Background(), usecase.CreateWebinarInput{Date: "2026-13-45"})
	require.Error(t, err)
	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "date")

	_, err = uc.CreateWebinar(context.Background(), usecase.CreateWebinarInput{Title: "x", Date: "2026-01-01", EventType: "podcast"})
	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))
}

func TestCoursesSortedByPrice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := usecase.NewWebinarUseCase(store.Webinars(), store.Courses(), zap.NewNop())

	for name, price := range map[string]int64{"Mentorship": 49999, "Basics": 4999, "Options": 14999} {
		_, err := uc.CreateCourse(ctx, usecase.CreateCourseInput{Name: name, Price: decimal.NewFromInt(price)})
		require.NoError(t, err)
	}
	_, err := uc.CreateCourse(ctx, usecase.CreateCourseInput{Name: "Refund", Price: decimal.NewFromInt(-1)})
	assert.Equal(t, usecase.CodeValidation, usecase.ErrorCode(err))

	list, err := uc.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Basics", "Options", "Mentorship"}, []string{list[0].Name, list[1].Name, list[2].Name})
}
