package apperr

import (
	"errors"
	"log/slog"
	"time"
)

// Classifier turns raw errors into AppErrors and logs each classification.
type Classifier struct {
	production bool
	log        *slog.Logger
	now        func() time.Time
}

// NewClassifier creates a classifier. In production the surfaced AppError carries no
// details or wrapped error.
func NewClassifier(production bool, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{production: production, log: log, now: time.Now}
}

// Handle classifies err. context names the operation for the log line.
func (c *Classifier) Handle(err error, context string) *AppError {
	if err == nil {
		return nil
	}
	var existing *AppError
	if errors.As(err, &existing) {
		return existing
	}

	kind := Classify(err)
	ae := &AppError{
		Kind:      kind,
		Message:   kind.Message(),
		Timestamp: c.now(),
		Err:       err,
	}
	var se *StatusError
	if errors.As(err, &se) {
		ae.Status = se.Status
		ae.Code = se.Code
		ae.Details = map[string]any{"service": se.Service, "body": se.Body}
	}

	c.log.Error("Operation failed",
		"context", context,
		"type", kind,
		"error", err.Error(),
		"status", ae.Status,
		"code", ae.Code,
	)

	if c.production {
		return ae.Public()
	}
	return ae
}
