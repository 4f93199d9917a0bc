// Package validate re-checks normalized batches before they are loaded.
//
// Struct-tag rules (required fields, email syntax, enum membership, coordinate
// bounds, timestamp format) produce errors; soft data-quality checks produce
// warnings. A batch is valid when it has no errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"crm-migrate/internal/logging"
	"crm-migrate/internal/model"
	"crm-migrate/internal/normalize"
)

// MinPhoneDigits is the digit count below which a phone number is flagged.
const MinPhoneDigits = 10

// Validator validates normalized contacts, organizations and activities.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with JSON field names and the enum tags registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	enums := map[string][]string{
		"organization_type": model.OrganizationTypes,
		"activity_type":     model.ActivityTypes,
	}
	for tag, values := range enums {
		if err := v.RegisterValidation(tag, oneOf(values)); err != nil {
			panic(fmt.Sprintf("validate: failed to register %q: %v", tag, err))
		}
	}
	return &Validator{v: v}
}

func oneOf(values []string) validator.Func {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return func(fl validator.FieldLevel) bool {
		return set[fl.Field().String()]
	}
}

// ValidateContacts checks a contact batch.
func (x *Validator) ValidateContacts(batch []model.Contact) model.ValidationResult {
	res := newResult()
	for i, c := range batch {
		x.structIssues(&res, i, c)
		checkSinglePrimary(&res, i, "emails", len(c.Emails), func(j int) bool { return c.Emails[j].IsPrimary })
		checkSinglePrimary(&res, i, "phones", len(c.Phones), func(j int) bool { return c.Phones[j].IsPrimary })
		for j, p := range c.Phones {
			if n := normalize.Digits(p.Value); p.Value != "" && n < MinPhoneDigits {
				res.Warnings = append(res.Warnings, model.ValidationIssue{
					Index:   i,
					Field:   fmt.Sprintf("phones[%d].value", j),
					Message: fmt.Sprintf("phone number has %d digits, expected at least %d", n, MinPhoneDigits),
					Value:   p.Value,
				})
			}
		}
		if ca := c.CustomAttributes; ca != nil && ca.Social != nil {
			x.urlWarning(&res, i, "custom_attributes.social.linkedin", ca.Social.LinkedIn)
			x.urlWarning(&res, i, "custom_attributes.social.facebook", ca.Social.Facebook)
			x.urlWarning(&res, i, "custom_attributes.social.website", ca.Social.Website)
		}
	}
	return finish(model.EntityContacts, res)
}

// ValidateOrganizations checks an organization batch.
func (x *Validator) ValidateOrganizations(batch []model.Organization) model.ValidationResult {
	res := newResult()
	for i, o := range batch {
		x.structIssues(&res, i, o)
		x.urlWarning(&res, i, "website", o.Website)
	}
	return finish(model.EntityOrganizations, res)
}

// ValidateActivities checks an activity batch. Activities without a contact key
// are valid but cannot be linked at load time, which is reported as a warning.
func (x *Validator) ValidateActivities(batch []model.Activity) model.ValidationResult {
	res := newResult()
	for i, a := range batch {
		x.structIssues(&res, i, a)
		if !a.HasContactKey() {
			res.Warnings = append(res.Warnings, model.ValidationIssue{
				Index:   i,
				Field:   "contact",
				Message: "no _contact_email or _contact_name; activity will be skipped at load",
			})
		}
	}
	return finish(model.EntityActivities, res)
}

func newResult() model.ValidationResult {
	return model.ValidationResult{Errors: []model.ValidationIssue{}, Warnings: []model.ValidationIssue{}}
}

func finish(entity model.Entity, res model.ValidationResult) model.ValidationResult {
	res.IsValid = len(res.Errors) == 0
	logging.WithFields(logging.Debug, logging.Fields{"entity": string(entity)},
		"Validation: %d errors, %d warnings", len(res.Errors), len(res.Warnings))
	return res
}

// structIssues runs the struct-tag rules and converts failures into errors.
func (x *Validator) structIssues(res *model.ValidationResult, index int, record interface{}) {
	err := x.v.Struct(record)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, model.ValidationIssue{Index: index, Message: err.Error()})
		return
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, model.ValidationIssue{
			Index:   index,
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
			Value:   formatValue(fe.Value()),
		})
	}
}

func (x *Validator) urlWarning(res *model.ValidationResult, index int, field, value string) {
	if value == "" {
		return
	}
	if x.v.Var(value, "http_url") != nil {
		res.Warnings = append(res.Warnings, model.ValidationIssue{
			Index:   index,
			Field:   field,
			Message: "not an absolute http(s) URL",
			Value:   value,
		})
	}
}

func checkSinglePrimary(res *model.ValidationResult, index int, field string, n int, isPrimary func(int) bool) {
	count := 0
	for j := 0; j < n; j++ {
		if isPrimary(j) {
			count++
		}
	}
	if count > 1 {
		res.Errors = append(res.Errors, model.ValidationIssue{
			Index:   index,
			Field:   field,
			Message: fmt.Sprintf("%d entries marked primary, at most one allowed", count),
		})
	}
}

// fieldPath drops the leading struct name: "Contact.emails[0].value" -> "emails[0].value".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "invalid email address"
	case "organization_type":
		return "must be one of " + strings.Join(model.OrganizationTypes, ", ")
	case "activity_type":
		return "must be one of " + strings.Join(model.ActivityTypes, ", ")
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "datetime":
		return "must be an RFC 3339 timestamp"
	default:
		return fmt.Sprintf("failed '%s' check", fe.Tag())
	}
}

func formatValue(v interface{}) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	return fmt.Sprint(rv.Interface())
}
