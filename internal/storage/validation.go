// Package storage persists the set of bet fingerprints already recorded.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateFingerprint accepts hex-encoded SHA-256 digests only.
func validateFingerprint(id string) error {
	if err := validateString(id, "fingerprint"); err != nil {
		return err
	}
	if len(id) != 64 {
		return fmt.Errorf("%w: expected 64 hex characters, got %d", ErrInvalidFingerprint, len(id))
	}
	if _, err := hex.DecodeString(id); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}
	return nil
}
