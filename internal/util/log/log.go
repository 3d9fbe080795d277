/*
 * Copyright 2018 The Trickster Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package log provides the structured, level-filtered logger used across
// the daemon: cache backends, the config loader, and the expiry engine all
// log through a *Logger built by New or ConsoleLogger.
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-stack/stack"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ewqasd200g/varnish-cache/internal/config"
)

func mapToArray(event string, detail Pairs) []interface{} {
	a := make([]interface{}, (len(detail)*2)+2)
	var i int

	if lvl, ok := detail["level"]; ok {
		a[0] = "level"
		a[1] = lvl
		delete(detail, "level")
		i += 2
	}

	a[i] = "event"
	a[i+1] = event
	i += 2

	for k, v := range detail {
		a[i] = k
		a[i+1] = v
		i += 2
	}
	return a
}

// Pairs represents the key=value detail attached to a log event.
type Pairs map[string]interface{}

// Logger is a container for the underlying go-kit log provider.
type Logger struct {
	logger log.Logger
	closer io.Closer
	level  string
}

// ConsoleLogger returns a Logger that writes to stdout, for tests and
// short-lived tools that have no config.LoggingConfig to load from.
func ConsoleLogger(logLevel string) *Logger {
	l := &Logger{level: strings.ToLower(logLevel)}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	l.logger = withCaller(logger, l.level)
	return l
}

// New returns a Logger for the provided logging configuration. Instances
// with instanceID > 0 get a distinct log file name so that multiple daemon
// processes sharing a LogFile path don't clobber one another.
func New(cfg *config.LoggingConfig, instanceID int) *Logger {
	l := &Logger{level: strings.ToLower(cfg.LogLevel)}

	var wr io.Writer
	if cfg.LogFile == "" {
		wr = os.Stdout
	} else {
		logFile := cfg.LogFile
		if instanceID > 0 {
			logFile = strings.Replace(logFile, ".log", "."+strconv.Itoa(instanceID)+".log", 1)
		}
		wr = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    256,
			MaxBackups: 80,
			MaxAge:     7,
			Compress:   true,
		}
	}

	base := log.NewLogfmtLogger(log.NewSyncWriter(wr))
	l.logger = withCaller(base, l.level)
	if c, ok := wr.(io.Closer); ok {
		l.closer = c
	}
	return l
}

func withCaller(base log.Logger, lvl string) log.Logger {
	logger := log.With(base,
		"time", log.DefaultTimestampUTC,
		"app", "varnishd",
		"caller", log.Valuer(func() interface{} {
			return pkgCaller{stack.Caller(6)}
		}),
	)
	switch lvl {
	case "debug", "trace":
		return level.NewFilter(logger, level.AllowDebug())
	case "warn":
		return level.NewFilter(logger, level.AllowWarn())
	case "error":
		return level.NewFilter(logger, level.AllowError())
	default:
		return level.NewFilter(logger, level.AllowInfo())
	}
}

// Info sends an INFO event to the underlying logger.
func Info(l log.Logger, event string, detail Pairs) {
	level.Info(l).Log(mapToArray(event, detail)...)
}

// Warn sends a WARN event to the underlying logger.
func Warn(l log.Logger, event string, detail Pairs) {
	level.Warn(l).Log(mapToArray(event, detail)...)
}

// Error sends an ERROR event to the underlying logger.
func Error(l log.Logger, event string, detail Pairs) {
	level.Error(l).Log(mapToArray(event, detail)...)
}

// Debug sends a DEBUG event to the underlying logger.
func Debug(l log.Logger, event string, detail Pairs) {
	level.Debug(l).Log(mapToArray(event, detail)...)
}

// Trace sends a TRACE event; go-kit/log/level has no Trace level so it is
// implemented here as a gate on the Logger's own configured level.
func (l *Logger) Trace(event string, detail Pairs) {
	if l.level == "trace" {
		detail["level"] = "trace"
		l.logger.Log(mapToArray(event, detail)...)
	}
}

// Fatal sends a FATAL event and exits the process with the given code.
func (l *Logger) Fatal(code int, event string, detail Pairs) {
	detail["level"] = "fatal"
	l.logger.Log(mapToArray(event, detail)...)
	os.Exit(code)
}

// Close releases any file handles opened for logging.
func (l *Logger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

// Log implements the go-kit log.Logger interface, so a *Logger can be
// passed anywhere a log.Logger is expected.
func (l *Logger) Log(keyvals ...interface{}) error {
	return l.logger.Log(keyvals...)
}

type pkgCaller struct {
	c stack.Call
}

func (pc pkgCaller) String() string {
	return strings.TrimPrefix(fmt.Sprintf("%+v", pc.c), "github.com/ewqasd200g/varnish-cache/internal/")
}
