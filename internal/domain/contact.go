package domain

import (
	"context"
	"time"
)

// Contact form field names, as reported in validation details.
const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldSubject        = "subject"
	FieldMessage        = "message"
	FieldChallengeToken = "challengeToken"
	// FieldBody tags a request body that could not be decoded at all.
	FieldBody = "body"
)

// ContactRequest represents a contact form submission.
// It lives for a single request and is never stored.
type ContactRequest struct {
	Name           string `json:"name" validate:"min=2,max=100"`
	Email          string `json:"email" validate:"required,email,contact_email"`
	Subject        string `json:"subject" validate:"min=5,max=200"`
	Message        string `json:"message" validate:"min=10,max=1000"`
	ChallengeToken string `json:"challengeToken" validate:"required"`
	// TurnstileToken is the key the site's widget posts; it is folded into ChallengeToken.
	TurnstileToken string `json:"turnstileToken,omitempty" validate:"-" swaggerignore:"true"`
}

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Outcome tags how a submission ended.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRateLimited
	OutcomeInvalid
	OutcomeChallengeFailed
	OutcomeUnavailable
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeChallengeFailed:
		return "challenge_failed"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubmissionResult is the terminal state of one contact submission.
type SubmissionResult struct {
	Outcome     Outcome
	FieldErrors []FieldError // set for OutcomeInvalid
	RetryAt     time.Time    // set for OutcomeRateLimited
	Err         error        // underlying cause for OutcomeUnavailable / OutcomeFailed
}

// Submission is what the delivery layer hands to the usecase.
type Submission struct {
	ClientKey string
	Body      []byte
}

// ContactUsecase defines the interface for contact form operations
type ContactUsecase interface {
	// Submit runs rate limiting, validation, challenge verification and dispatch in that order.
	Submit(ctx context.Context, sub Submission) *SubmissionResult
	// SiteKey returns the public key the challenge widget is rendered with.
	SiteKey() string
}

// RateDecision is the answer of a rate limiter for one call.
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter admits or denies calls per client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateDecision, error)
}

// ChallengeVerifier confirms a challenge token with the external service.
// It reports false on any failure.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// ContactNotifier delivers an accepted submission to the site owner.
type ContactNotifier interface {
	Send(ctx context.Context, req *ContactRequest) error
}

// ContactValidator checks a decoded request and returns every violated field.
type ContactValidator interface {
	Validate(req *ContactRequest) []FieldError
}
