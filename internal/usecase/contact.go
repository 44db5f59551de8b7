package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/email"
	"portfolio-backend/pkg/logger"
	"portfolio-backend/pkg/security"
	"portfolio-backend/pkg/validation"
)

// ContactDeps are the collaborators of the contact orchestrator.
type ContactDeps struct {
	Limiter     domain.RateLimiter
	Validator   domain.ContactValidator
	Verifier    domain.ChallengeVerifier
	Notifier    domain.ContactNotifier
	SecurityLog *security.SecurityLogger
	SiteKey     string
	// Timeout bounds challenge verification plus dispatch. Zero means no extra deadline.
	Timeout time.Duration
}

type contactUsecase struct {
	limiter     domain.RateLimiter
	validator   domain.ContactValidator
	verifier    domain.ChallengeVerifier
	notifier    domain.ContactNotifier
	securityLog *security.SecurityLogger
	siteKey     string
	timeout     time.Duration
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(deps ContactDeps) domain.ContactUsecase {
	securityLog := deps.SecurityLog
	if securityLog == nil {
		securityLog = security.Nop()
	}
	return &contactUsecase{
		limiter:     deps.Limiter,
		validator:   deps.Validator,
		verifier:    deps.Verifier,
		notifier:    deps.Notifier,
		securityLog: securityLog,
		siteKey:     deps.SiteKey,
		timeout:     deps.Timeout,
	}
}

func (uc *contactUsecase) SiteKey() string {
	return uc.siteKey
}

// Submit moves one submission through rate-checked, validated, challenge-verified
// and dispatched. Every path ends in exactly one result; nothing is retried.
func (uc *contactUsecase) Submit(ctx context.Context, sub domain.Submission) *domain.SubmissionResult {
	requestID, _ := ctx.Value(domain.KeyRequestID).(string)
	log := logger.Log.With("request_id", requestID, "client", sub.ClientKey)

	decision, err := uc.limiter.Allow(ctx, sub.ClientKey)
	if err != nil {
		log.Error("rate limiter failed", "error", err)
		uc.securityLog.LogContactEvent(ctx, security.EventUnexpectedFailure, sub.ClientKey, "", requestID,
			map[string]interface{}{"stage": "rate_limit", "error": err.Error()})
		return &domain.SubmissionResult{Outcome: domain.OutcomeFailed, Err: fmt.Errorf("rate limit check: %w", err)}
	}
	if !decision.Allowed {
		uc.securityLog.LogRateLimitTriggered(ctx, sub.ClientKey, requestID, "contact")
		return &domain.SubmissionResult{Outcome: domain.OutcomeRateLimited, RetryAt: decision.ResetAt}
	}

	req, typeErr, fieldErrors := decodeContactRequest(sub.Body)
	if fieldErrors == nil {
		fieldErrors = mergeFieldErrors(typeErr, uc.validator.Validate(req))
	}
	if len(fieldErrors) > 0 {
		log.Info("contact submission rejected by validation", "fields", len(fieldErrors))
		uc.securityLog.LogContactEvent(ctx, security.EventValidationFailed, sub.ClientKey, "", requestID,
			map[string]interface{}{"fields": fieldNames(fieldErrors)})
		return &domain.SubmissionResult{Outcome: domain.OutcomeInvalid, FieldErrors: fieldErrors}
	}

	if uc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}

	if !uc.verifier.Verify(ctx, req.ChallengeToken, sub.ClientKey) {
		uc.securityLog.LogContactEvent(ctx, security.EventChallengeFailed, sub.ClientKey, req.Email, requestID, nil)
		return &domain.SubmissionResult{Outcome: domain.OutcomeChallengeFailed}
	}

	if err := uc.notifier.Send(ctx, req); err != nil {
		if errors.Is(err, email.ErrNotConfigured) {
			log.Error("contact email not sent", "kind", "configuration", "error", err)
			uc.securityLog.LogContactEvent(ctx, security.EventMailNotConfigured, sub.ClientKey, req.Email, requestID, nil)
			return &domain.SubmissionResult{Outcome: domain.OutcomeUnavailable, Err: err}
		}
		log.Error("contact email not sent", "kind", "delivery", "error", err)
		uc.securityLog.LogContactEvent(ctx, security.EventMailDeliveryFailed, sub.ClientKey, req.Email, requestID,
			map[string]interface{}{"error": err.Error()})
		return &domain.SubmissionResult{Outcome: domain.OutcomeFailed, Err: err}
	}

	uc.securityLog.LogContactEvent(ctx, security.EventContactDelivered, sub.ClientKey, req.Email, requestID, nil)
	return &domain.SubmissionResult{Outcome: domain.OutcomeAccepted}
}

// decodeContactRequest parses body and returns the normalized request. A value
// of the wrong JSON type on a form field is returned as typeErr and the rest of
// the body is still decoded. A body that is not a JSON object yields bodyErrs.
func decodeContactRequest(body []byte) (req *domain.ContactRequest, typeErr *domain.FieldError, bodyErrs []domain.FieldError) {
	var raw domain.ContactRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		var unmarshalTypeErr *json.UnmarshalTypeError
		if !errors.As(err, &unmarshalTypeErr) || !isContactField(unmarshalTypeErr.Field) {
			return nil, nil, []domain.FieldError{{Field: domain.FieldBody, Message: "Request body must be a JSON object"}}
		}
		typeErr = &domain.FieldError{Field: unmarshalTypeErr.Field, Message: "Invalid value"}
	}
	return validation.Normalize(&raw), typeErr, nil
}

// mergeFieldErrors puts typeErr in place of any validator message for the same
// field, keeping form field order.
func mergeFieldErrors(typeErr *domain.FieldError, validated []domain.FieldError) []domain.FieldError {
	if typeErr == nil {
		return validated
	}
	byField := make(map[string]domain.FieldError, len(validated)+1)
	for _, fe := range validated {
		if _, seen := byField[fe.Field]; !seen {
			byField[fe.Field] = fe
		}
	}
	byField[typeErr.Field] = *typeErr

	merged := make([]domain.FieldError, 0, len(byField))
	for _, field := range contactFields {
		if fe, ok := byField[field]; ok {
			merged = append(merged, fe)
		}
	}
	return merged
}

var contactFields = []string{
	domain.FieldName, domain.FieldEmail, domain.FieldSubject, domain.FieldMessage, domain.FieldChallengeToken,
}

func isContactField(field string) bool {
	for _, f := range contactFields {
		if f == field {
			return true
		}
	}
	return false
}

func fieldNames(errs []domain.FieldError) []string {
	names := make([]string, 0, len(errs))
	for _, e := range errs {
		names = append(names, e.Field)
	}
	return names
}
