package security

import "go.uber.org/zap/zapcore"

// Severity represents the severity level of a security event
// This is derived from EventType, NOT user-provided
type Severity string

const (
	SeverityINFO     Severity = "INFO"
	SeverityMEDIUM   Severity = "MEDIUM"
	SeverityWARN     Severity = "WARN"
	SeverityHIGH     Severity = "HIGH"
	SeverityCRITICAL Severity = "CRITICAL"
)

// EventSeverityMap defines the hard-coded severity for each event type
var EventSeverityMap = map[EventType]Severity{
	// INFO - Normal operations
	EventContactDelivered: SeverityINFO,

	// WARN - Abuse signals, monitor
	EventValidationFailed:    SeverityWARN,
	EventChallengeFailed:     SeverityWARN,
	EventRateLimitTriggered:  SeverityWARN,
	EventOriginRejected:      SeverityWARN,
	EventGlobalLimitExceeded: SeverityWARN,

	// HIGH - The site owner is not receiving messages
	EventMailDeliveryFailed: SeverityHIGH,
	EventUnexpectedFailure:  SeverityHIGH,

	// CRITICAL - Every submission fails until the deployment is fixed
	EventMailNotConfigured: SeverityCRITICAL,
}

// GetSeverity returns the severity for an event type
// If the event type is not mapped, defaults to MEDIUM
func GetSeverity(eventType EventType) Severity {
	if severity, ok := EventSeverityMap[eventType]; ok {
		return severity
	}
	return SeverityMEDIUM
}

// IsHighOrAbove returns true if the event is HIGH or CRITICAL severity
func IsHighOrAbove(eventType EventType) bool {
	severity := GetSeverity(eventType)
	return severity == SeverityHIGH || severity == SeverityCRITICAL
}

// LevelFor returns the level an event type is logged at
func LevelFor(event EventType) zapcore.Level {
	switch GetSeverity(event) {
	case SeverityINFO:
		return zapcore.InfoLevel
	case SeverityWARN:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
