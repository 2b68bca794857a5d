package registration

import (
	"errors"
	"maps"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// notSpace excludes every separator a browser treats as whitespace, not just
// the ASCII set RE2 means by \s.
const notSpace = `[^\s\v\p{Z}\x{FEFF}@]`

var (
	emailPattern = regexp.MustCompile(`^` + notSpace + `+@` + notSpace + `+\.` + notSpace + `+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

// messages maps each field to the text shown when its rule fails.
var messages = map[string]string{
	FieldFirstName:          "First name is required",
	FieldLastName:           "Last name is required",
	FieldEmail:              "Valid email is required",
	FieldPhone:              "Valid 10-digit phone number is required",
	FieldCompany:            "Company name is required",
	FieldJobTitle:           "Job title is required",
	FieldTicketType:         "Ticket type must be standard, vip or earlybird",
	FieldDietaryPreferences: "Dietary preference must be none, vegetarian, vegan or nonveg",
	FieldAgreeTerms:         "You must agree to terms and conditions",
}

// rules is safe for concurrent use and caches struct metadata.
var rules = newRules()

func newRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	custom := map[string]validator.Func{
		"filled": func(fl validator.FieldLevel) bool {
			return trim(fl.Field().String()) != ""
		},
		"loose_email": func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		},
		"phone10": func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		},
		"accepted": func(fl validator.FieldLevel) bool {
			return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("registration: register rule " + tag + ": " + err.Error())
		}
	}
	return v
}

// trim drops leading and trailing whitespace including the byte order mark.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// Errors maps a field name to the message for its failing rule.
// A missing key means the field is valid.
type Errors map[string]string

// Valid reports whether no field is failing.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// Clear drops the entry for field, if any.
func (e Errors) Clear(field string) {
	delete(e, field)
}

// Fields returns the failing field names.
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	return out
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	if e == nil {
		return Errors{}
	}
	return maps.Clone(e)
}

// Validate evaluates every field rule against d and returns the failing
// fields. It never short-circuits and has no side effects.
func Validate(d Draft) Errors {
	out := Errors{}
	err := rules.Struct(d)
	if err == nil {
		return out
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Only reachable on a programming error in the rule set.
		panic("registration: " + err.Error())
	}
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}

// ValidEmail applies the form's email rule on its own, for the quick
// early-access and newsletter inputs.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
