package accounts

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MinPasswordLength = 6
	MaxUsernameLength = 40
	MaxEmailLength    = 60
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidationError lists every reason an input was rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// SignupInput is what a visitor submits to create an account.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Timezone string `json:"timezone"`
}

// Validate checks every field and returns a *ValidationError or nil.
func (in SignupInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Username,
			validation.Required,
			validation.Length(1, MaxUsernameLength),
			validation.Match(usernamePattern).Error("may only contain letters, digits, hyphens and underscores"),
		),
		validation.Field(&in.Email,
			validation.Required,
			validation.Length(1, MaxEmailLength),
			is.Email,
		),
		validation.Field(&in.Password, passwordRules()...),
		validation.Field(&in.Timezone,
			validation.Required,
			validation.By(knownTimezone),
		),
	)
	return toValidationError(err)
}

// ValidatePassword applies the password rules on their own, for resets and
// administrative password changes.
func ValidatePassword(password string) error {
	err := validation.Errors{"password": validation.Validate(password, passwordRules()...)}.Filter()
	return toValidationError(err)
}

// IsEmail reports whether input is syntactically an email address.
func IsEmail(input string) bool {
	return input != "" && validation.Validate(input, is.Email) == nil
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLength, 0).Error(fmt.Sprintf("must be at least %d characters long", MinPasswordLength)),
	}
}

func knownTimezone(value interface{}) error {
	tz, _ := value.(string)
	if tz == "" {
		return nil
	}
	if tz == "Local" {
		return errors.New("must be a recognized IANA time zone")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return errors.New("must be a recognized IANA time zone")
	}
	return nil
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	ve := &ValidationError{}
	for _, f := range fields {
		ve.Reasons = append(ve.Reasons, fmt.Sprintf("%s: %v", f, errs[f]))
	}
	return ve
}
