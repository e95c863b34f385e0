package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/entity"
	"github.com/xavierca1/nivesh-crm/internal/infra/memory"
	"github.com/xavierca1/nivesh-crm/internal/usecase"
)

// TestUpsertLeadsCollapsesEqualIdentities - every spelling of one number becomes one lead
func TestUpsertLeadsCollapsesEqualIdentities(t *testing.T) {
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	out, err := uc.Execute(context.Background(), usecase.UpsertLeadsInput{
		Candidates: []entity.Candidate{
			{Name: "Asha", Contact: "+91 98765-43210"},
			{Name: "", Contact: "09876543210", City: "Pune"},
			{Name: "Asha Kulkarni", Contact: "\"9876543210\""},
			{Name: "Broken", Contact: "12-34"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Inserted)
	assert.Equal(t, 2, out.Merged)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, 3, out.Rejected[0].Row)
	assert.Equal(t, "12-34", out.Rejected[0].Contact)
	assert.Equal(t, "Broken", out.Rejected[0].Name)

	res, err := store.Leads().Search(context.Background(), entity.SearchQuery{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.TotalCount)

	lead := res.Rows[0]
	assert.Equal(t, "919876543210", lead.PhoneKey)
	// Folded in batch order: the last non-empty value wins.
	assert.Equal(t, "Asha Kulkarni", lead.Name)
	assert.Equal(t, "Pune", lead.City)
	assert.Equal(t, entity.StatusCold, lead.Status)
}

// TestUpsertLeadsCountInvariant - inserted + merged == N - K and K rows are rejected
func TestUpsertLeadsCountInvariant(t *testing.T) {
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	candidates := []entity.Candidate{
		{Name: "A", Contact: "9000000001"},
		{Name: "B", Contact: "9000000002"},
		{Name: "B again", Contact: "+91 90000 00002"},
		{Name: "C", Contact: "abc"},
		{Name: "D", Contact: "9000000004", Status: "lukewarm"},
		{Name: "E", Contact: "9000000005"},
		{Name: "F", Contact: ""},
	}

	out, err := uc.Execute(context.Background(), usecase.UpsertLeadsInput{Candidates: candidates})

	require.NoError(t, err)
	k := len(out.Rejected)
	assert.Equal(t, 3, k)
	assert.Equal(t, len(candidates)-k, out.Inserted+out.Merged)
	assert.Equal(t, 3, out.Inserted)
	assert.Equal(t, 1, out.Merged)
}

// TestUpsertLeadsRerunIsIdempotent - a second run only merges and keeps admin edits
func TestUpsertLeadsRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newUpsertUC(t, store)
	admin := usecase.NewLeadAdminUseCase(store.Leads(), testNormalizer, zap.NewNop())

	batch := usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Ravi", Contact: "9811111111", Assignee: "Priya", Status: "warm"},
		{Name: "Meena", Contact: "9822222222", FollowUpNotes: "call after 6pm"},
		{Name: "Meena S", Contact: "919822222222"},
		{Name: "Kiran", Contact: "9833333333"},
		{Name: "Bad", Contact: "00"},
	}}
	n := len(batch.Candidates)

	first, err := uc.Execute(ctx, batch)
	require.NoError(t, err)
	k := len(first.Rejected)
	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, n-k, first.Inserted+first.Merged)

	ravi := leadByContact(t, store, "9811111111")
	_, err = admin.UpdateLeadFields(ctx, ravi.ID, usecase.UpdateLeadInput{
		AssignedTo: strPtr("Anil"),
		Status:     strPtr("hot"),
	})
	require.NoError(t, err)

	second, err := uc.Execute(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, n-k, second.Merged)
	assert.Len(t, second.Rejected, k)

	ravi = leadByContact(t, store, "9811111111")
	require.NotNil(t, ravi.AssignedTo)
	assert.Equal(t, "Anil", *ravi.AssignedTo)
	assert.Equal(t, entity.StatusHot, ravi.Status)

	meena := leadByContact(t, store, "9822222222")
	assert.Equal(t, "call after 6pm", meena.FollowUpNotes)
}

// TestUpsertLeadsColdLeadAcceptsSecondaryStatus - "+91 98765-43210" then "9876543210" warm
func TestUpsertLeadsColdLeadAcceptsSecondaryStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	_, err := uc.Execute(ctx, usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Asha", Contact: "+91 98765-43210"},
	}})
	require.NoError(t, err)

	out, err := uc.Execute(ctx, usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Asha Rao", Contact: "9876543210", Status: "warm"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Inserted)
	assert.Equal(t, 1, out.Merged)

	res, err := store.Leads().Search(ctx, entity.SearchQuery{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.TotalCount)
	assert.Equal(t, "Asha", res.Rows[0].Name)
	assert.Equal(t, entity.StatusWarm, res.Rows[0].Status)
}

// TestUpsertLeadsNeverDowngradesStatus - a non-cold status survives a later import
func TestUpsertLeadsNeverDowngradesStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	_, err := uc.Execute(ctx, usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Dev", Contact: "9700000000", Status: "enrolled"},
	}})
	require.NoError(t, err)

	_, err = uc.Execute(ctx, usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Dev", Contact: "9700000000", Status: "cold"},
	}})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusEnrolled, leadByContact(t, store, "9700000000").Status)
}

// TestUpsertLeadsOverrideReplacesFields - override lets incoming values win
func TestUpsertLeadsOverrideReplacesFields(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	_, err := uc.Execute(ctx, usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Old Name", Contact: "9600000000", Assignee: "Priya", Status: "hot", City: "Delhi"},
	}})
	require.NoError(t, err)

	_, err = uc.Execute(ctx, usecase.UpsertLeadsInput{
		Override: true,
		Candidates: []entity.Candidate{
			{Name: "New Name", Contact: "9600000000", Assignee: "Anil", Status: "dead"},
		},
	})
	require.NoError(t, err)

	lead := leadByContact(t, store, "9600000000")
	assert.Equal(t, "New Name", lead.Name)
	require.NotNil(t, lead.AssignedTo)
	assert.Equal(t, "Anil", *lead.AssignedTo)
	assert.Equal(t, entity.StatusDead, lead.Status)
	// Empty incoming values never erase.
	assert.Equal(t, "Delhi", lead.City)
}

// TestUpsertLeadsBatchTooLarge - the size bound is checked before any work
func TestUpsertLeadsBatchTooLarge(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewUpsertLeadsUseCase(store.Leads(), testNormalizer, 2, zap.NewNop())

	candidates := make([]entity.Candidate, 3)
	for i := range candidates {
		candidates[i] = entity.Candidate{Name: "x", Contact: fmt.Sprintf("98000000%02d", i)}
	}

	_, err := uc.Execute(context.Background(), usecase.UpsertLeadsInput{Candidates: candidates})

	assert.ErrorIs(t, err, entity.ErrBatchTooLarge)
	assert.Equal(t, usecase.CodeBatchTooLarge, usecase.ErrorCode(err))
}

// TestUpsertLeadsIsAllOrNothing - one bad reference aborts the whole batch
func TestUpsertLeadsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	_, err := uc.Execute(ctx, usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Fine", Contact: "9500000001"},
		{Name: "Ghost webinar", Contact: "9500000002", WebinarID: uuid.NewString()},
	}})

	assert.ErrorIs(t, err, entity.ErrConstraintViolation)
	assert.Equal(t, usecase.CodeConstraintViolation, usecase.ErrorCode(err))

	res, err := store.Leads().Search(ctx, entity.SearchQuery{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.TotalCount)
}

// TestUpsertLeadsRejectsMalformedReferences - a non-id webinar is a row rejection, not a batch failure
func TestUpsertLeadsRejectsMalformedReferences(t *testing.T) {
	store := memory.NewStore()
	uc := newUpsertUC(t, store)

	out, err := uc.Execute(context.Background(), usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "Fine", Contact: "9500000001"},
		{Name: "Typo", Contact: "9500000002", WebinarID: "june-batch"},
	}})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Inserted)
	require.Len(t, out.Rejected, 1)
	assert.Contains(t, out.Rejected[0].Reason, "webinar_id")
}

// TestUpsertLeadsStoreConflict - an exhausted retry budget surfaces as CONFLICT_WRITE_FAILED
func TestUpsertLeadsStoreConflict(t *testing.T) {
	store := memory.NewStore()
	repo := failingLeadRepo{LeadRepository: store.Leads(), err: fmt.Errorf("upsert: %w", entity.ErrConflictWriteFailed)}
	uc := usecase.NewUpsertLeadsUseCase(repo, testNormalizer, 0, zap.NewNop())

	_, err := uc.Execute(context.Background(), usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "A", Contact: "9000000001"},
	}})

	assert.Equal(t, usecase.CodeConflictWriteFailed, usecase.ErrorCode(err))
	assert.True(t, usecase.IsDomainError(err))
}

// TestUpsertLeadsUnexpectedStoreError - unknown failures are technical errors
func TestUpsertLeadsUnexpectedStoreError(t *testing.T) {
	store := memory.NewStore()
	repo := failingLeadRepo{LeadRepository: store.Leads(), err: errors.New("connection reset")}
	uc := usecase.NewUpsertLeadsUseCase(repo, testNormalizer, 0, zap.NewNop())

	_, err := uc.Execute(context.Background(), usecase.UpsertLeadsInput{Candidates: []entity.Candidate{
		{Name: "A", Contact: "9000000001"},
	}})

	assert.True(t, usecase.IsTechnicalError(err))
	assert.Equal(t, usecase.CodeInternal, usecase.ErrorCode(err))
}
