// Package logging configures the logrus standard logger.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Setup sets the log level and formatter. Quiet leaves only errors,
// debug enables per-file messages. Callers reject quiet with debug.
func Setup(w io.Writer, quiet, debug, colors bool) {
	lvl := logrus.InfoLevel
	switch {
	case debug:
		lvl = logrus.DebugLevel
	case quiet:
		lvl = logrus.ErrorLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:      colors,
		DisableColors:    !colors,
		DisableTimestamp: !debug,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05.000",
		QuoteEmptyFields: true,
	})
	logrus.SetOutput(w)
}
