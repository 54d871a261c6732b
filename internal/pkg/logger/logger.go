package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"setoran-pa/internal/pkg/requestid"
)

// Log is the process-wide logger. It is usable before Init is called.
var Log = newLogger(os.Stdout, logrus.InfoLevel)

// Init configures the global logger with the given level name.
// Unknown levels fall back to info.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log = newLogger(os.Stdout, lvl)
	if err != nil && level != "" {
		Log.Warnf("⚠️ Unknown LOG_LEVEL %q, using info", level)
	}
}

// SetOutput redirects the global logger, mostly for tests.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// For returns an entry tagged with the operation name and the request id
// carried by ctx, if any.
func For(ctx context.Context, op string) *logrus.Entry {
	entry := Log.WithField("op", op)
	if id := requestid.From(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
