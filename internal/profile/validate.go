package profile

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/xaenox/mindmesh-bot/internal/models"
)

const maxUsernameLength = 64

// ValidationError lists the questionnaire answers that were rejected, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := lo.Map(keys, func(k string, _ int) string {
		return k + ": " + e.Fields[k]
	})
	return "invalid answers (" + strings.Join(parts, "; ") + ")"
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// support_need accepts only members of models.SupportNeeds
	_ = v.RegisterValidation("support_need", func(fl validator.FieldLevel) bool {
		return lo.Contains(models.SupportNeeds, fl.Field().String())
	})

	return v
}

// ValidateUsername checks the identity rules: non-empty, bounded length and no whitespace.
func ValidateUsername(username string) error {
	reason := ""
	switch {
	case username == "":
		reason = "must not be empty"
	case len(username) > maxUsernameLength:
		reason = fmt.Sprintf("must be at most %d bytes", maxUsernameLength)
	case strings.ContainsFunc(username, unicode.IsSpace):
		reason = "must not contain spaces"
	}
	if reason != "" {
		return &ValidationError{Fields: map[string]string{"username": reason}}
	}
	return nil
}

// PrepareKnowledge normalizes p in place and checks it against the closed answer sets.
func PrepareKnowledge(p *models.KnowledgeProfile) error {
	p.Normalize()
	return check(p)
}

// PrepareLearner normalizes p in place and checks it against the closed answer sets.
func PrepareLearner(p *models.LearnerProfile) error {
	p.Normalize()
	return check(p)
}

func check(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = describeFailure(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldName turns "KnowledgeProfile.support_needs[2]" into "support_needs".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	name, _, _ := strings.Cut(ns, "[")
	return name
}

func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%q is not one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "support_need":
		return fmt.Sprintf("%q is not a known subject", fe.Value())
	case "min", "max":
		return fmt.Sprintf("must be between %d and %d", models.ScaleMin, models.ScaleMax)
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
