package repository

import "errors"

// ErrNotFound is returned when a document id resolves to nothing, either
// because the id is malformed or because no document matches it.
var ErrNotFound = errors.New("not found")
