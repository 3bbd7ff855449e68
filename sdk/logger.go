package sdk

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Logger is the leveled sink the SDK writes to. Every string it receives has
// already been passed through Sanitize.
//
// *logrus.Logger and *logrus.Entry satisfy Logger, so an application can hand
// in its own logrus instance, optionally with fields attached:
//
//	log := logrus.New()
//	client, err := sdk.NewClient(cfg, sdk.WithLogger(log.WithField("component", "payments")))
type Logger interface {
	Warn(args ...interface{})
	Error(args ...interface{})
}

// defaultLogger is used when no Logger option is given.
func defaultLogger() Logger {
	return logrus.StandardLogger()
}

func warnf(l Logger, format string, args ...interface{}) {
	l.Warn(Sanitize(fmt.Sprintf(format, args...)))
}

func errorf(l Logger, format string, args ...interface{}) {
	l.Error(Sanitize(fmt.Sprintf(format, args...)))
}

// restyLogger routes resty's internal diagnostics through the SDK logger so
// they are sanitized like everything else. Debug output is dropped.
type restyLogger struct {
	l Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) { errorf(r.l, format, v...) }
func (r restyLogger) Warnf(format string, v ...interface{})  { warnf(r.l, format, v...) }
func (r restyLogger) Debugf(string, ...interface{})          {}
