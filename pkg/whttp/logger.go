package whttp

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *logrus.Logger
}

func (ll leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return ll.l.WithFields(f)
}

func (ll leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	ll.fields(keysAndValues).Error(msg)
}

func (ll leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	// retryablehttp is chatty at info level; one line per request is ours to log.
	ll.fields(keysAndValues).Trace(msg)
}

func (ll leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	ll.fields(keysAndValues).Trace(msg)
}

func (ll leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	ll.fields(keysAndValues).Warn(msg)
}
