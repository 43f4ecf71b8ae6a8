package models

import (
	"time"
)

// Security gate reason codes.
const (
	ReasonAllowed           = "allowed"
	ReasonRateLimit         = "rate_limit"
	ReasonBlockedDomain     = "blocked_domain"
	ReasonSuspiciousPattern = "suspicious_pattern"
	ReasonURLTooLong        = "url_too_long"
	ReasonURLNotFound       = "url_not_found"
)

// Verdict is the security gate's answer for one candidate URL.
type Verdict struct {
	Allowed bool
	Reason  string
	// Message is safe to show to the submitting user.
	Message string
}

// SecurityEvent is the audit record written for every verdict.
type SecurityEvent struct {
	ID        int64     `json:"id"`
	Identity  string    `json:"identity"`
	URL       string    `json:"url"`
	Reason    string    `json:"reason"`
	Allowed   bool      `json:"allowed"`
	CreatedAt time.Time `json:"created_at"`
}
