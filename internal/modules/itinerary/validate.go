package itinerary

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("countrycode", func(fl validator.FieldLevel) bool {
		return countryCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the structural invariants every accepted itinerary must hold:
// title, startDate and endDate are present, every activity has a title, and
// country codes are two upper-case letters.
func Validate(it Itinerary) error {
	msgs := structProblems(it)
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// ValidateDetailed reports every problem found in an edited itinerary, including the
// date ordering and non-negative amounts that generation does not enforce.
func ValidateDetailed(it Itinerary) []string {
	problems := structProblems(it)

	start, startOK := parseTime(it.StartDate)
	end, endOK := parseTime(it.EndDate)
	if it.StartDate != "" && !startOK {
		problems = append(problems, fmt.Sprintf("startDate: unrecognised date %q", it.StartDate))
	}
	if it.EndDate != "" && !endOK {
		problems = append(problems, fmt.Sprintf("endDate: unrecognised date %q", it.EndDate))
	}
	if startOK && endOK && end.Before(start) {
		problems = append(problems, "endDate is before startDate")
	}
	if it.Budget != nil && *it.Budget < 0 {
		problems = append(problems, "budget must not be negative")
	}
	if it.Participants != nil && *it.Participants < 0 {
		problems = append(problems, "participants must not be negative")
	}
	for i, a := range it.Activities {
		if a.EstimatedCost != nil && *a.EstimatedCost < 0 {
			problems = append(problems, fmt.Sprintf("activities[%d].estimatedCost must not be negative", i))
		}
		st, stOK := parseTime(a.StartTime)
		et, etOK := parseTime(a.EndTime)
		if stOK && etOK && et.Before(st) {
			problems = append(problems, fmt.Sprintf("activities[%d] ends before it starts", i))
		}
	}
	return problems
}

func structProblems(it Itinerary) []string {
	err := validate.Struct(it)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return msgs
}

func describe(fe validator.FieldError) string {
	path := strings.TrimPrefix(fe.Namespace(), "Itinerary.")
	switch fe.Tag() {
	case "required":
		return "missing required field " + path
	case "countrycode":
		return fmt.Sprintf("%s: invalid country code %q", path, fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s", path, fe.Tag())
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
