package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init is called so that
// packages logging from tests do not need any setup.
var Log = logrus.New()

// Init configures the global logger. format is "json" or "text"; an unknown
// level falls back to info.
func Init(level, format string) {
	Log.SetOutput(os.Stdout)

	if strings.EqualFold(format, "text") {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
