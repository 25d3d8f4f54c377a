package store

import "errors"

var (
	// ErrDuplicateName is returned when a record with the same name exists.
	ErrDuplicateName = errors.New("medicine name already exists")
	// ErrDuplicateID is returned when a restored row reuses an existing id.
	ErrDuplicateID = errors.New("medicine id already exists")
	// ErrIncompleteRecord is returned when any of the four fields is blank.
	ErrIncompleteRecord = errors.New("name, location, category and expiry_date are required")
)
