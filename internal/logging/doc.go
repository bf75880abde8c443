// Package logging provides structured logging utilities for meetingscheduler.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (participant email anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.busy")
//	logger.Info("fetched busy intervals",
//	    logging.Participant(email),
//	    logging.Status("completed"))
//
// # Security Considerations
//
//   - Participant emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens and API keys are never logged directly
package logging
