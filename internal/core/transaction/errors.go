package transaction

import "errors"

var (
	// ErrNoLines is returned when a line-scoped operation runs before any line exists.
	ErrNoLines = errors.New("no lines have been added")

	// ErrTaxDateRequired is returned when a TaxDate override is requested without a date.
	ErrTaxDateRequired = errors.New("a valid date is required for a tax date tax override")
)
