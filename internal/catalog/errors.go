package catalog

import "errors"

var (
	// ErrNoDatabase is returned when a read is requested without a schema name
	ErrNoDatabase = errors.New("no database selected")

	// ErrTableNotFound is returned when a table disappears between listing and loading
	ErrTableNotFound = errors.New("table not found")
)
