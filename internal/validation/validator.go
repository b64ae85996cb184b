// Package validation normalizes and validates account input.
package validation

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dtroode/breathesense-server/internal/model"
	"github.com/dtroode/breathesense-server/internal/password"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`)

// Validator checks signup and profile input. It is safe for concurrent use.
type Validator struct {
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// New creates a Validator with the account-specific rules registered.
func New() *Validator {
	v := &Validator{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}

	v.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails on an empty tag name, which cannot happen here.
	_ = v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	_ = v.validate.RegisterValidation("past", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.Before(v.now())
	})

	return v
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup normalizes p in place and validates it.
func (v *Validator) Signup(p *model.SignupParams) error {
	p.Email = NormalizeEmail(p.Email)
	p.FirstName = v.clean(p.FirstName)
	p.LastName = v.clean(p.LastName)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	v.cleanAddress(p.Address)
	v.cleanMedicalHistory(p.MedicalHistory)
	v.cleanEmergencyContact(p.EmergencyContact)

	var missing []string
	if p.Email == "" {
		missing = append(missing, "email")
	}
	if p.Password == "" {
		missing = append(missing, "password")
	}
	if p.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if p.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		return &FieldError{Missing: missing}
	}

	if len(p.Password) > password.MaxLength {
		return &FieldError{Problems: []string{fmt.Sprintf("password must be at most %d bytes", password.MaxLength)}}
	}

	return v.check(p)
}

// Profile normalizes p in place and validates it.
func (v *Validator) Profile(p *model.ProfilePatch) error {
	var problems []string
	if p.FirstName != nil {
		s := v.clean(*p.FirstName)
		p.FirstName = &s
		if s == "" {
			problems = append(problems, "firstName must not be empty")
		}
	}
	if p.LastName != nil {
		s := v.clean(*p.LastName)
		p.LastName = &s
		if s == "" {
			problems = append(problems, "lastName must not be empty")
		}
	}
	if p.PhoneNumber != nil {
		// An empty phone number clears it.
		s := strings.TrimSpace(*p.PhoneNumber)
		p.PhoneNumber = &s
	}
	v.cleanAddress(p.Address)
	v.cleanMedicalHistory(p.MedicalHistory)
	v.cleanEmergencyContact(p.EmergencyContact)

	if len(problems) > 0 {
		return &FieldError{Problems: problems}
	}

	return v.check(p)
}

func (v *Validator) check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return &FieldError{Problems: problems}
}

// maxCleanPasses bounds clean on nested entity encodings.
const maxCleanPasses = 4

// clean strips markup and returns plain text, so names like O'Brien survive.
// Entities are decoded before sanitizing and the result is cleaned again until
// it stops changing, so encoded tags never come back as live markup. Input that
// does not settle is dropped.
func (v *Validator) clean(s string) string {
	for range maxCleanPasses {
		next := html.UnescapeString(v.sanitizer.Sanitize(html.UnescapeString(s)))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	return ""
}

func (v *Validator) cleanAddress(a *model.Address) {
	if a == nil {
		return
	}
	a.Street = v.clean(a.Street)
	a.City = v.clean(a.City)
	a.State = v.clean(a.State)
	a.ZipCode = v.clean(a.ZipCode)
	a.Country = v.clean(a.Country)
}

func (v *Validator) cleanMedicalHistory(m *model.MedicalHistory) {
	if m == nil {
		return
	}
	m.Conditions = v.cleanList(m.Conditions)
	m.Medications = v.cleanList(m.Medications)
	m.Allergies = v.cleanList(m.Allergies)
}

func (v *Validator) cleanList(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = v.clean(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (v *Validator) cleanEmergencyContact(c *model.EmergencyContact) {
	if c == nil {
		return
	}
	c.Name = v.clean(c.Name)
	c.Relationship = v.clean(c.Relationship)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = NormalizeEmail(c.Email)
}

// describe turns a validator error into a message naming the field by its
// JSON path, e.g. "emergencyContact.phone".
func describe(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", ns)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", ns)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", ns, fe.Param())
		}
		return fmt.Sprintf("%s must have at least %s entries", ns, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", ns, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s entries", ns, fe.Param())
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", ns)
	case "role":
		return fmt.Sprintf("%s must be one of: %s, %s", ns, model.RolePatient, model.RoleAdmin)
	case "past":
		return fmt.Sprintf("%s must be in the past", ns)
	default:
		return fmt.Sprintf("%s is invalid", ns)
	}
}

// FieldError lists the fields that failed validation.
type FieldError struct {
	Missing  []string
	Problems []string
}

func (e *FieldError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
	}
	return strings.Join(e.Problems, "; ")
}
