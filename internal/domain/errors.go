// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness or concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource already exists or was modified")

// ErrValidation indicates the input failed validation. Wrap it with the
// user-facing reason: fmt.Errorf("%w: slug is required", ErrValidation).
var ErrValidation = errors.New("validation failed")

// ErrTenantNotIdentified indicates the tenant execution context could not be
// established for the identifier taken from the request.
var ErrTenantNotIdentified = errors.New("tenant could not be identified")
