// Package monitoring holds the shared diagnostic logger for the pipeline.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// can be redirected or muted with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// Verbose enables Debugf output when true.
var Verbose bool

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Debugf logs through Logf only when Verbose is set.
func Debugf(format string, v ...interface{}) {
	if Verbose {
		Logf(format, v...)
	}
}
