package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"info", LevelInfo, false},
		{" DEBUG ", LevelDebug, false},
		{"Off", LevelOff, false},
		{"trace", LevelTrace, false},
		{"verbose", LevelOff, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "WARN" {
		t.Errorf("LevelWarn.String() = %q", LevelWarn.String())
	}
	if Level(42).String() != "Level(42)" {
		t.Errorf("Level(42).String() = %q", Level(42).String())
	}
}

func TestLevelText(t *testing.T) {
	b, err := LevelDebug.MarshalText()
	if err != nil || string(b) != "DEBUG" {
		t.Errorf("MarshalText() = %q, %v", b, err)
	}
	if _, err = Level(42).MarshalText(); err == nil {
		t.Error("expected an error for an out of range level")
	}
	var l Level
	if err = l.UnmarshalText([]byte("warn")); err != nil || l != LevelWarn {
		t.Errorf("UnmarshalText() = %v, %v", l, err)
	}
	if err = l.UnmarshalText([]byte("loud")); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LevelInfo, &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Errorf("failed %d", 3)
	l.Tracef("hidden %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug/trace output leaked at INFO level:\n%s", out)
	}
	if !strings.Contains(out, "INFO :") || !strings.Contains(out, "shown 2") {
		t.Errorf("missing info line:\n%s", out)
	}
	if !strings.Contains(out, "ERROR:") || !strings.Contains(out, "failed 3") {
		t.Errorf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("expected caller file in output:\n%s", out)
	}
}

func TestLoggerOff(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LevelOff, &buf)
	l.Error("nothing")
	l.Warn("nothing")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}
