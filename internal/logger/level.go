package logger

import (
	"strings"

	"github.com/pkg/errors"
)

//go:generate go run golang.org/x/tools/cmd/stringer -type=Level -linecomment

// Level orders log verbosity, a Logger writes every message at or below its Level.
type Level int

const (
	LevelOff   Level = iota // OFF
	LevelError              // ERROR
	LevelWarn               // WARN
	LevelInfo               // INFO
	LevelDebug              // DEBUG
	LevelTrace              // TRACE
)

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for l := LevelOff; l <= LevelTrace; l++ {
		if l.String() == name {
			return l, nil
		}
	}
	return LevelOff, errors.Errorf("invalid log level: %q", s)
}

func (l Level) MarshalText() ([]byte, error) {
	if l < LevelOff || l > LevelTrace {
		return nil, errors.Errorf("invalid log level: %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	lv, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lv
	return nil
}
