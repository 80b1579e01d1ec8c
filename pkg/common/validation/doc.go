// Package validation provides common validation utilities for configuration
// parameters across admit packages.
//
// Every validator returns a *errors.ValidationError so that callers can match
// failures with errors.Is(err, errors.ErrInvalidConfiguration) regardless of
// which field was rejected.
package validation
