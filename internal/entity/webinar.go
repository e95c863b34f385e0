package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WebinarActive    = "active"
	WebinarCompleted = "completed"
	WebinarDraft     = "draft"
)

type Webinar struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	EventType string    `json:"event_type"` // webinar, demo, seminar
	Date      time.Time `json:"date"`
	Time      string    `json:"time,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func NewWebinar(title, eventType string, date time.Time, clock string) (*Webinar, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}
	if eventType == "" {
		eventType = string(CategoryWebinar)
	}
	switch Category(eventType) {
	case CategoryWebinar, CategoryDemo, CategorySeminar:
	default:
		return nil, errors.New("event_type must be webinar, demo or seminar")
	}
	return &Webinar{
		ID:        uuid.New().String(),
		Title:     title,
		EventType: eventType,
		Date:      DateOnly(date),
		Time:      clock,
		Status:    WebinarDraft,
		CreatedAt: time.Now(),
	}, nil
}

type Course struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewCourse(name string, price decimal.Decimal) (*Course, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	if price.IsNegative() {
		return nil, errors.New("price must not be negative")
	}
	if price.GreaterThan(MaxAmount) {
		return nil, fmt.Errorf("%w: price %s exceeds %s", ErrInvalidAmount, price.String(), MaxAmount.String())
	}
	return &Course{
		ID:        uuid.New().String(),
		Name:      name,
		Price:     price,
		CreatedAt: time.Now(),
	}, nil
}

type WebinarRepositoryInterface interface {
	Create(ctx context.Context, w *Webinar) error
	FindByID(ctx context.Context, id string) (*Webinar, error)
	FindActive(ctx context.Context) (*Webinar, error)
	List(ctx context.Context) ([]Webinar, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type CourseRepositoryInterface interface {
	Create(ctx context.Context, c *Course) error
	List(ctx context.Context) ([]Course, error)
}
