// Package fs defines the capability interfaces, attribute carrier, and
// callback protocol shared by every other package in the engine, mirroring
// the role rclone/fs plays for rclone's backends.
package fs

import (
	"fmt"
	"log/slog"
	"os"
)

// Level controls how much of the engine's chatter reaches the host logger.
type Level int

// Levels, most to least severe.
const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

var currentLevel = LevelInfo
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// SetLevel adjusts the verbosity of Debugf/Logf/Infof output; Errorf always
// logs.
func SetLevel(l Level) {
	currentLevel = l
}

// SetLogger lets a host application redirect engine log output.
func SetLogger(l *slog.Logger) {
	logger = l
}

func describe(o any) string {
	if o == nil {
		return "engine"
	}
	if s, ok := o.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", o)
}

// Debugf logs a message at debug level, tagged with the object o (or nil).
func Debugf(o any, format string, args ...any) {
	if currentLevel < LevelDebug {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...), "obj", describe(o))
}

// Infof logs a message at info level.
func Infof(o any, format string, args ...any) {
	if currentLevel < LevelInfo {
		return
	}
	logger.Info(fmt.Sprintf(format, args...), "obj", describe(o))
}

// Logf is an alias for Infof, matching the teacher's fs.Logf convention.
func Logf(o any, format string, args ...any) {
	Infof(o, format, args...)
}

// Errorf logs a message at error level unconditionally.
func Errorf(o any, format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...), "obj", describe(o))
}

// Trace logs entry and exit of a call, returning a function to call on
// exit. Use as: defer Trace(obj, "in=%v", in)("out=%v, err=%v", &out, &err)
func Trace(o any, format string, args ...any) func(string, ...any) {
	if currentLevel < LevelDebug {
		return func(string, ...any) {}
	}
	desc := describe(o)
	logger.Debug(">"+fmt.Sprintf(format, args...), "obj", desc)
	return func(format string, args ...any) {
		logger.Debug("<"+fmt.Sprintf(format, args...), "obj", desc)
	}
}
