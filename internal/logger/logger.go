package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// SlowThreshold marks tracked operations that should be reported as slow.
const SlowThreshold = 500 * time.Millisecond

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
}

// Setup configures the standard logger from the LOG_LEVEL and LOG_FORMAT settings
func Setup(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.StandardLogger()
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// For returns an entry carrying the request id of ctx, if any
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	if id := middleware.GetReqID(ctx); id != "" {
		return logrus.WithField("request_id", id)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Track logs how long an operation took; call the returned func when done
func Track(ctx context.Context, msg string) func() {
	start := time.Now()
	return func() {
		dur := time.Since(start)
		entry := For(ctx).WithField("duration", dur.String())

		if dur > SlowThreshold {
			entry.Warnf("%s completed (SLOW)", msg)
		} else {
			entry.Debugf("%s completed", msg)
		}
	}
}
