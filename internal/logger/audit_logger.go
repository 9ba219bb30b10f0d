// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogLotDraw logs a lot number draw.
func (al *AuditLogger) LogLotDraw(athletes int, seed uint64) {
	al.WithFields(logrus.Fields{
		"athletes": athletes,
		"seed":     seed,
	}).Info("Lot numbers drawn")
}

// LogResultEdit logs a change to a recorded attempt.
func (al *AuditLogger) LogResultEdit(lot int, athlete string, attempt, oldResult, newResult int, changedBy string) {
	al.WithFields(logrus.Fields{
		"lot":        lot,
		"athlete":    athlete,
		"attempt":    attempt,
		"old_result": oldResult,
		"new_result": newResult,
		"changed_by": changedBy,
	}).Info("Result edited")
}

// LogRejectedEdit logs a refused result edit.
func (al *AuditLogger) LogRejectedEdit(lot int, athlete string, attempt int, reason string) {
	al.WithFields(logrus.Fields{
		"lot":     lot,
		"athlete": athlete,
		"attempt": attempt,
		"reason":  reason,
	}).Warn("Result edit rejected")
}

// LogJuryReversal logs a jury overturning a referee decision.
func (al *AuditLogger) LogJuryReversal(platform string, lot int, athlete string, attempt int, good bool) {
	al.WithFields(logrus.Fields{
		"platform": platform,
		"lot":      lot,
		"athlete":  athlete,
		"attempt":  attempt,
		"good":     good,
	}).Warn("Jury decision recorded")
}
