// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every package; Init configures it once at startup.
var Logger = logrus.New()

// Init sets the level and the JSON formatter. Unknown levels fall back to info.
// Development mode gets the text formatter.
func Init(level string, development bool, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	Logger.SetOutput(out)
	Logger.SetReportCaller(true)

	if development {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			CallerPrettyfier: caller,
		})
	} else {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  "2006-01-02T15:04:05Z07:00",
			CallerPrettyfier: caller,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

func caller(f *runtime.Frame) (string, string) {
	return "", filepath.Base(f.File) + ":" + strconv.Itoa(f.Line)
}
