package entity

import (
	"fmt"
	"strings"
)

// Category buckets leads by the event type of their webinar.
type Category string

const (
	CategoryAll     Category = "all"
	CategoryWebinar Category = "webinar"
	CategoryDemo    Category = "demo"
	CategorySeminar Category = "seminar"
)

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryWebinar, CategoryDemo, CategorySeminar:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidFilter, s)
}

// SearchFilter is the explicit set of filters accepted by the query engine.
// Empty fields do not filter.
type SearchFilter struct {
	Query     string
	Status    LeadStatus
	Source    string
	WebinarID string
	Category  Category
}

// SearchQuery is a validated filter plus a page window.
type SearchQuery struct {
	Filter SearchFilter
	Limit  int
	Offset int
}

type SearchResult struct {
	Rows       []Lead `json:"rows"`
	TotalCount int64  `json:"total_count"`
}


// PhoneQueryDigits returns the digits of q when q reads as a phone number:
// digits plus spaces and + - ( ) . separators, with at least one digit.
// Any other query is matched against the phone key as typed.
func PhoneQueryDigits(q string) (string, bool) {
	var b strings.Builder
	for _, r := range q {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '+' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", false
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
