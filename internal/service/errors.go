package service

import (
	"errors"
	"fmt"

	"github.com/dafedescribe/wey/internal/models"
)

var (
	ErrInvalidURL = errors.New("invalid URL")
	// ErrCodeExhausted means the allocator gave up after the attempt cap.
	ErrCodeExhausted = errors.New("failed to allocate a unique short code")
)

// SecurityDeniedError carries the gate's verdict up to the caller. The
// Message field is safe to forward to the submitting user.
type SecurityDeniedError struct {
	Verdict models.Verdict
}

func (e *SecurityDeniedError) Error() string {
	return fmt.Sprintf("creation denied: %s", e.Verdict.Reason)
}
