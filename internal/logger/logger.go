package logger

import (
	"fmt"
	"io"
	"log"
)

type Logger struct {
	level       Level
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
	traceLogger *log.Logger
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Error(v ...any) { output(l.errorLogger, fmt.Sprintln(v...)) }
func (l *Logger) Warn(v ...any)  { output(l.warnLogger, fmt.Sprintln(v...)) }
func (l *Logger) Info(v ...any)  { output(l.infoLogger, fmt.Sprintln(v...)) }
func (l *Logger) Debug(v ...any) { output(l.debugLogger, fmt.Sprintln(v...)) }
func (l *Logger) Trace(v ...any) { output(l.traceLogger, fmt.Sprintln(v...)) }

func (l *Logger) Errorf(format string, v ...any) { output(l.errorLogger, fmt.Sprintf(format, v...)) }
func (l *Logger) Warnf(format string, v ...any)  { output(l.warnLogger, fmt.Sprintf(format, v...)) }
func (l *Logger) Infof(format string, v ...any)  { output(l.infoLogger, fmt.Sprintf(format, v...)) }
func (l *Logger) Debugf(format string, v ...any) { output(l.debugLogger, fmt.Sprintf(format, v...)) }
func (l *Logger) Tracef(format string, v ...any) { output(l.traceLogger, fmt.Sprintf(format, v...)) }

// output skips the wrapper frames so Lshortfile points at the caller.
func output(l *log.Logger, s string) {
	if l != nil {
		_ = l.Output(3, s)
	}
}

// NewLogger returns a Logger writing every message at or above level to out.
func NewLogger(level Level, out io.Writer) *Logger {
	l := &Logger{level: level}
	flag := log.LstdFlags | log.Lshortfile

	newLevelLogger := func(lv Level, prefix string) *log.Logger {
		if level < lv {
			return nil
		}
		return log.New(out, prefix, flag)
	}
	l.errorLogger = newLevelLogger(LevelError, "ERROR:")
	l.warnLogger = newLevelLogger(LevelWarn, "WARN :")
	l.infoLogger = newLevelLogger(LevelInfo, "INFO :")
	l.debugLogger = newLevelLogger(LevelDebug, "DEBUG:")
	l.traceLogger = newLevelLogger(LevelTrace, "TRACE:")
	return l
}
