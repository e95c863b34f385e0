package usecase

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateRegisterLeadInput(input RegisterLeadInput) []ValidationError {
	var errors []ValidationError

	name := strings.TrimSpace(input.Name)
	if name == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(name) < 2 {
		errors = append(errors, ValidationError{"name", "must have at least 2 characters"})
	} else if len(name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	if strings.TrimSpace(input.Phone) == "" {
		errors = append(errors, ValidationError{"phone", "is required"})
	}

	if email := strings.TrimSpace(input.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		}
	}

	if input.WebinarID != "" && !isValidID(input.WebinarID) {
		errors = append(errors, ValidationError{"webinar_id", "must be a valid id"})
	}

	return errors
}

func ValidateCreateWebinarInput(input CreateWebinarInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Title) == "" {
		errors = append(errors, ValidationError{"title", "is required"})
	}
	if strings.TrimSpace(input.Date) == "" {
		errors = append(errors, ValidationError{"date", "is required"})
	} else if _, err := parseDate(input.Date); err != nil {
		errors = append(errors, ValidationError{"date", "must be a valid date (YYYY-MM-DD)"})
	}
	if input.Status != "" && !isValidWebinarStatus(input.Status) {
		errors = append(errors, ValidationError{"status", "must be active, completed or draft"})
	}

	return errors
}

// joinValidation folds field errors into one VALIDATION_ERROR.
func joinValidation(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return validationError(strings.Join(msgs, "; "))
}

func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isValidWebinarStatus(s string) bool {
	switch s {
	case "active", "completed", "draft":
		return true
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("02/01/2006", s)
}
