package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/suplementor/backend/internal/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// profileValidator returns the shared validator. Field paths use JSON names
// so errors point at what the caller actually sent.
func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateProfile rejects a profile before any scoring happens.
// The returned error is a *domain.FieldError wrapping domain.ErrInvalidProfile.
func ValidateProfile(profile *domain.UserProfile) error {
	if profile == nil {
		return domain.NewProfileError("profile", "is required")
	}

	if err := profileValidator().Struct(profile); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return toProfileError(verrs[0])
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidProfile, err)
	}

	budget := profile.Preferences.Budget
	if budget.Max > 0 && budget.Max < budget.Min {
		return domain.NewProfileError("preferences.budget.max",
			fmt.Sprintf("%.2f is below budget min %.2f", budget.Max, budget.Min))
	}

	return nil
}

// toProfileError converts one validator failure into a FieldError with a JSON path
func toProfileError(fe validator.FieldError) *domain.FieldError {
	field := fe.Namespace()
	// drop the root struct name
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "oneof":
		reason = fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "gte", "min":
		reason = fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte", "max":
		reason = fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	default:
		reason = fmt.Sprintf("failed %s validation", fe.Tag())
	}

	return domain.NewProfileError(field, reason)
}

// validateItemIDs checks an explicit item list from an interaction request
func validateItemIDs(ids []string, minimum int) error {
	if len(ids) < minimum {
		return &domain.FieldError{
			Kind:   domain.ErrInvalidRequest,
			Field:  "itemIds",
			Reason: fmt.Sprintf("at least %d item identifiers required, got %d", minimum, len(ids)),
		}
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &domain.FieldError{
				Kind:   domain.ErrInvalidRequest,
				Field:  fmt.Sprintf("itemIds[%d]", i),
				Reason: "must not be empty",
			}
		}
	}
	return nil
}
