// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist in the caller's
// tenant. Rows owned by another tenant are reported the same way.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness or concurrent modification conflict.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates the input failed validation.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// Tenant resolution errors.
var (
	ErrTenantNotResolved = errors.New("tenant not resolved")
	ErrTenantAmbiguous   = errors.New("tenant ambiguous: select a tenant explicitly")
	ErrTenantForbidden   = errors.New("tenant access denied")
)
