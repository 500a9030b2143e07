package errors

import (
	"github.com/sirupsen/logrus"
)

// LogError logs an error with its structured context. AppErrors contribute
// their code and context fields; plain errors are logged as-is.
func LogError(logger *logrus.Logger, err error, message string) {
	if err == nil {
		return
	}

	entry := logger.WithError(err)
	if appErr, ok := err.(*AppError); ok {
		entry = entry.WithField("error_code", string(appErr.Code))
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}
	entry.Error(message)
}

// LogWarning logs an error at warning level, for failures the pipeline
// swallows by design (media extraction, best-effort storage).
func LogWarning(logger *logrus.Logger, err error, message string) {
	if err == nil {
		return
	}

	entry := logger.WithError(err)
	if appErr, ok := err.(*AppError); ok {
		entry = entry.WithField("error_code", string(appErr.Code))
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}
	entry.Warn(message)
}
