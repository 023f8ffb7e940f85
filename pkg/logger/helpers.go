package logger

import (
	"time"
)

// LogRequest logs a completed HTTP exchange
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration":    duration,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogOutcome logs the terminal outcome of one fetch attempt
func LogOutcome(l Logger, attemptID, url, outcome, filename string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"attempt": attemptID,
		"url":     url,
		"outcome": outcome,
	})
	if filename != "" {
		entry = entry.WithField("file", filename)
	}

	if err != nil {
		entry.WithError(err).Warn("Fetch attempt failed")
		return
	}
	entry.Info("Fetch attempt finished")
}

// LogRateLimit logs time spent waiting on the request limiter
func LogRateLimit(l Logger, host string, waited time.Duration) {
	l.WithFields(map[string]interface{}{
		"host":   host,
		"waited": waited,
		"action": "rate_limited",
	}).Debug("Waited for rate limiter")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) Debug(msg string)                                          {}
func (n nopLogger) Info(msg string)                                           {}
func (n nopLogger) Warn(msg string)                                           {}
func (n nopLogger) Error(msg string)                                          {}
func (n nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n nopLogger) WithError(err error) Logger                                { return n }
func (n nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
