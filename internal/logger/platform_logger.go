package logger

import (
	"github.com/sirupsen/logrus"
)

// PlatformLogger logs field-of-play activity for one platform.
type PlatformLogger struct {
	*logrus.Entry
}

// NewPlatformLogger creates a logger tagged with the platform name.
func NewPlatformLogger(baseLogger *logrus.Logger, platform string) *PlatformLogger {
	return &PlatformLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component": "fop",
			"platform":  platform,
		}),
	}
}

// LogTransition logs a state change caused by an event.
func (pl *PlatformLogger) LogTransition(event, from, to string) {
	if from == to {
		return
	}
	pl.WithFields(logrus.Fields{
		"event": event,
		"from":  from,
		"to":    to,
	}).Debug("State transition")
}

// LogDecision logs a recorded lift.
func (pl *PlatformLogger) LogDecision(lot int, athlete string, attempt, result int) {
	pl.WithFields(logrus.Fields{
		"lot":     lot,
		"athlete": athlete,
		"attempt": attempt,
		"result":  result,
		"good":    result > 0,
	}).Info("Decision recorded")
}

// LogWeightChange logs an accepted declaration or change.
func (pl *PlatformLogger) LogWeightChange(lot int, athlete string, attempt int, kind string, weight int, currentAffected bool) {
	pl.WithFields(logrus.Fields{
		"lot":              lot,
		"athlete":          athlete,
		"attempt":          attempt,
		"kind":             kind,
		"weight":           weight,
		"current_affected": currentAffected,
	}).Info("Weight change")
}

// LogCurrentAthlete logs who has been called and with how much time.
func (pl *PlatformLogger) LogCurrentAthlete(lot int, athlete string, weight, timeAllowedMs int) {
	pl.WithFields(logrus.Fields{
		"lot":          lot,
		"athlete":      athlete,
		"weight":       weight,
		"time_allowed": timeAllowedMs,
	}).Debug("Current athlete")
}

// LogIgnoredEvent logs an event that does not apply in the current state.
func (pl *PlatformLogger) LogIgnoredEvent(event, state, reason string) {
	pl.WithFields(logrus.Fields{
		"event":  event,
		"state":  state,
		"reason": reason,
	}).Warn("Event ignored")
}

// LogRejected logs an operator action that was refused.
func (pl *PlatformLogger) LogRejected(event string, err error) {
	pl.WithFields(logrus.Fields{
		"event": event,
	}).WithError(err).Warn("Operator action rejected")
}
