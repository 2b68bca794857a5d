package registration

import "fmt"

// Form is one open registration session: the draft being edited plus the
// errors from the last submit attempt. It is not safe for concurrent use;
// the owner drives it from a single goroutine.
type Form struct {
	draft  Draft
	errors Errors
}

// NewForm returns a form holding the default draft and no errors.
func NewForm() *Form {
	return &Form{draft: DefaultDraft(), errors: Errors{}}
}

// Set changes one field. If that field currently has an error, the entry is
// removed right away without re-running validation.
func (f *Form) Set(field string, value any) error {
	if err := f.assign(field, value); err != nil {
		return err
	}
	f.errors.Clear(field)
	return nil
}

func (f *Form) assign(field string, value any) error {
	if field == FieldAgreeTerms {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants bool, got %T", ErrFieldType, field, value)
		}
		f.draft.AgreeTerms = b
		return nil
	}

	var target *string
	switch field {
	case FieldFirstName:
		target = &f.draft.FirstName
	case FieldLastName:
		target = &f.draft.LastName
	case FieldEmail:
		target = &f.draft.Email
	case FieldPhone:
		target = &f.draft.Phone
	case FieldCompany:
		target = &f.draft.Company
	case FieldJobTitle:
		target = &f.draft.JobTitle
	case FieldTicketType, FieldDietaryPreferences:
		// handled below; enum types are not *string
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s wants string, got %T", ErrFieldType, field, value)
	}
	switch field {
	case FieldTicketType:
		f.draft.TicketType = TicketType(s)
	case FieldDietaryPreferences:
		f.draft.DietaryPreferences = DietaryPreference(s)
	default:
		*target = s
	}
	return nil
}

// Submit validates the whole draft, replaces the error set and reports
// whether the draft may be handed to a transport.
func (f *Form) Submit() (Errors, bool) {
	f.errors = Validate(f.draft)
	return f.errors.Clone(), f.errors.Valid()
}

// Reset restores the default draft and clears all errors.
func (f *Form) Reset() {
	f.draft = DefaultDraft()
	f.errors = Errors{}
}

// Draft returns a copy of the current values.
func (f *Form) Draft() Draft {
	return f.draft
}

// Errors returns a copy of the current error set.
func (f *Form) Errors() Errors {
	return f.errors.Clone()
}
