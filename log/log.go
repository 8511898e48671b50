// Package log : leveled logging for the shim and anything built on top of it.
// InitLogger(true) enables debug output for development and tests.
package log

import (
	"os"

	logging "github.com/op/go-logging"
)

// IsDev : guards expensive debug-only log blocks at call sites.
var IsDev bool

var logger = logging.MustGetLogger("ledgershim")

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{shortfunc}%{color:reset} %{message}`,
)

// InitLogger : configures the backend once at startup.
// isDev = true lowers the threshold to DEBUG.
func InitLogger(isDev bool) {
	IsDev = isDev
	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format)
	leveled := logging.AddModuleLevel(backend)
	if isDev {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.INFO, "")
	}
	logging.SetBackend(leveled)
}

func Debug(args ...interface{}) {
	logger.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

func Info(args ...interface{}) {
	logger.Info(args...)
}

func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

func Warningf(format string, args ...interface{}) {
	logger.Warningf(format, args...)
}

func Error(args ...interface{}) {
	logger.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}
