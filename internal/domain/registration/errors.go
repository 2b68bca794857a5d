package registration

import "errors"

// Sentinel errors for form edits.
var (
	ErrUnknownField = errors.New("unknown form field")
	ErrFieldType    = errors.New("wrong value type for form field")
)
