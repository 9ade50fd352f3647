// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios.
package repository

import "errors"

// ErrEventNotFound is returned when no event matches the given id, including
// ids that are not valid ObjectID hex strings.  Handlers translate it into a
// 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrProfileNotFound is returned when no profile exists for an email.
var ErrProfileNotFound = errors.New("profile not found")
