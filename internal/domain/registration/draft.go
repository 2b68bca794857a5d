// Package registration validates the event registration form.
//
// The form is modelled as an explicit Draft owned by the caller. Validate is
// a pure function over a Draft; Form adds the session behavior of the page
// (per-field error clearing and reset after a successful submit).
package registration

import "strings"

// Form field names as they appear on the wire and in Errors.
const (
	FieldFirstName          = "firstName"
	FieldLastName           = "lastName"
	FieldEmail              = "email"
	FieldPhone              = "phone"
	FieldCompany            = "company"
	FieldJobTitle           = "jobTitle"
	FieldTicketType         = "ticketType"
	FieldDietaryPreferences = "dietaryPreferences"
	FieldAgreeTerms         = "agreeTerms"
)

// TicketType is the pass the attendee asks for.
type TicketType string

// Ticket types offered on the form.
const (
	TicketStandard  TicketType = "standard"
	TicketVIP       TicketType = "vip"
	TicketEarlyBird TicketType = "earlybird"
)

// DietaryPreference is the catering choice.
type DietaryPreference string

// Dietary preferences offered on the form.
const (
	DietNone       DietaryPreference = "none"
	DietVegetarian DietaryPreference = "vegetarian"
	DietVegan      DietaryPreference = "vegan"
	DietNonVeg     DietaryPreference = "nonveg"
)

// Draft holds the in-progress values of the registration form.
// Payment fields are intentionally absent.
type Draft struct {
	FirstName          string            `json:"firstName" validate:"filled"`
	LastName           string            `json:"lastName" validate:"filled"`
	Email              string            `json:"email" validate:"loose_email"`
	Phone              string            `json:"phone" validate:"phone10"`
	Company            string            `json:"company" validate:"filled"`
	JobTitle           string            `json:"jobTitle" validate:"filled"`
	TicketType         TicketType        `json:"ticketType" validate:"omitempty,oneof=standard vip earlybird"`
	DietaryPreferences DietaryPreference `json:"dietaryPreferences" validate:"omitempty,oneof=none vegetarian vegan nonveg"`
	AgreeTerms         bool              `json:"agreeTerms" validate:"accepted"`
}

// DefaultDraft returns the values a fresh form starts with.
func DefaultDraft() Draft {
	return Draft{
		TicketType:         TicketStandard,
		DietaryPreferences: DietNone,
	}
}

// WithDefaults fills empty enum fields with their defaults.
func (d Draft) WithDefaults() Draft {
	if d.TicketType == "" {
		d.TicketType = TicketStandard
	}
	if d.DietaryPreferences == "" {
		d.DietaryPreferences = DietNone
	}
	return d
}

// EmailKey normalizes the email for duplicate detection.
func (d Draft) EmailKey() string {
	return strings.ToLower(strings.TrimSpace(d.Email))
}
