// Package logging builds the logrus loggers used across shoplist.
package logging

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// New returns a text logger writing to w. Debug enables debug level; the
// default level is warn so command output stays clean.
func New(w io.Writer, debug bool) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	l.SetLevel(log.WarnLevel)
	if debug {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// NewJSON returns a JSON logger for the web server.
func NewJSON(w io.Writer, debug bool) *log.Logger {
	l := log.New()
	l.SetOutput(w)
	l.SetFormatter(&log.JSONFormatter{})
	l.SetLevel(log.InfoLevel)
	if debug {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
