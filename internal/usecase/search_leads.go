package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200

	// MaxOffset bounds (page-1)*page_size; deeper pages are rejected.
	MaxOffset = math.MaxInt32
)

// SearchLeadsUseCase turns request parameters into an explicit store query.
// It holds no state between calls.
type SearchLeadsUseCase struct {
	Repo entity.LeadRepositoryInterface
}

func NewSearchLeadsUseCase(repo entity.LeadRepositoryInterface) *SearchLeadsUseCase {
	return &SearchLeadsUseCase{Repo: repo}
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "all")
}

func invalidFilter(format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{entity.ErrInvalidFilter}, args...)...)
	return &DomainError{Code: CodeInvalidFilter, Message: err.Error(), Err: err}
}

// BuildQuery validates the filters and resolves the page window.
func BuildQuery(input SearchLeadsInput) (entity.SearchQuery, int, int, error) {
	var f entity.SearchFilter
	f.Query = strings.TrimSpace(input.Query)

	if !isAll(input.Status) {
		st, err := entity.ParseLeadStatus(input.Status)
		if err != nil {
			return entity.SearchQuery{}, 0, 0, invalidFilter("unknown status %q", input.Status)
		}
		f.Status = st
	}
	if !isAll(input.Source) {
		f.Source = strings.TrimSpace(input.Source)
	}
	if !isAll(input.WebinarID) {
		if !isValidID(strings.TrimSpace(input.WebinarID)) {
			return entity.SearchQuery{}, 0, 0, invalidFilter("webinar_id %q is not a valid id", input.WebinarID)
		}
		f.WebinarID = strings.TrimSpace(input.WebinarID)
	}
	cat, err := entity.ParseCategory(input.Category)
	if err != nil {
		return entity.SearchQuery{}, 0, 0, classify(err)
	}
	f.Category = cat

	page := input.Page
	if page < 1 {
		page = 1
	}
	size := input.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	if page-1 > MaxOffset/size {
		return entity.SearchQuery{}, 0, 0, invalidFilter("page %d is out of range", page)
	}

	return entity.SearchQuery{Filter: f, Limit: size, Offset: (page - 1) * size}, page, size, nil
}

func (uc *SearchLeadsUseCase) Execute(ctx context.Context, input SearchLeadsInput) (*SearchLeadsOutput, error) {
	q, page, size, err := BuildQuery(input)
	if err != nil {
		return nil, err
	}

	res, err := uc.Repo.Search(ctx, q)
	if err != nil {
		return nil, classify(err)
	}

	pages := res.TotalCount / int64(size)
	if res.TotalCount%int64(size) != 0 {
		pages++
	}
	return &SearchLeadsOutput{
		Rows:       res.Rows,
		TotalCount: res.TotalCount,
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
	}, nil
}
