package core

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the billing engine. Transition failures are reported
// to the caller and never retried internally; each carries the entity id so
// the caller can render a precise message without re-deriving it.
var (
	ErrInvalidInstallmentPlan = errors.New("invalid installment plan")
	ErrAlreadyPaid            = errors.New("already paid")
	ErrNotPaid                = errors.New("not paid")
	ErrCancelled              = errors.New("cancelled")
	ErrEntryNotFound          = errors.New("entry not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrCardNotFound           = errors.New("card not found")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// EntryErr wraps a taxonomy error with the offending entry id.
func EntryErr(id int64, err error) error {
	return fmt.Errorf("entry %d: %w", id, err)
}

// InvoiceErr wraps a taxonomy error with the offending invoice id.
func InvoiceErr(id int64, err error) error {
	return fmt.Errorf("invoice %d: %w", id, err)
}
