// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict on a queue entry,
// such as claiming an entry that another validator claimed first.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrInvalidInput indicates a malformed or incomplete validation request.
// It is surfaced to the caller immediately and never retried.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotOwner indicates a release or complete attempt by a validator that
// does not hold the claim on the entry.
var ErrNotOwner = errors.New("not owner: entry is claimed by another validator")

// ErrDuplicateEntry indicates an enqueue for a validation result that already
// has an active (pending or claimed) queue entry.
var ErrDuplicateEntry = errors.New("duplicate entry: validation result already queued")
