package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"xscraper/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info console", &config.LoggingConfig{Level: "info"}, false},
		{"debug json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "verbose"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() returned nil logger")
			}
			if tt.cfg.File != "" {
				if _, err := os.Stat(tt.cfg.File); err != nil {
					t.Errorf("log file not created: %v", err)
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"trace", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogLevel(%q) error = %v", tt.level, err)
			}
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf))

	base := l.WithField("query", "#golang")
	base.WithFields(Fields{"pass": 3}).WithError(errors.New("boom")).Warn("scan failed")
	base.Info("plain")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["query"] != "#golang" || lines[0]["pass"] != float64(3) || lines[0]["error"] != "boom" {
		t.Errorf("unexpected first line: %v", lines[0])
	}
	if _, ok := lines[1]["pass"]; ok {
		t.Error("child fields leaked into parent logger")
	}
}

func TestWithFieldsVariants(t *testing.T) {
	var buf bytes.Buffer
	l := FromZerolog(zerolog.New(&buf).Level(zerolog.DebugLevel))

	l.DebugWithFields("d", Fields{"a": 1})
	l.InfoWithFields("i", Fields{"b": "x"})
	l.WarnWithFields("w", Fields{"c": true})
	l.ErrorWithFields("e", Fields{"d": 2 * time.Second})

	lines := decodeLines(t, &buf)
	levels := []string{"debug", "info", "warn", "error"}
	if len(lines) != len(levels) {
		t.Fatalf("expected %d lines, got %d", len(levels), len(lines))
	}
	for i, lvl := range levels {
		if lines[i]["level"] != lvl {
			t.Errorf("line %d level = %v, want %s", i, lines[i]["level"], lvl)
		}
	}
}

func TestDomainHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogPass(tl, 1, 3, 3, 10)
	LogStall(tl, 2, 5, 6*time.Second)
	LogLongPause(tl, 5*time.Minute, 42)
	LogDroppedRecord(tl, "@a", "garbage", "unparsable timestamp")

	if len(tl.GetMessagesByLevel("WARN")) != 3 {
		t.Errorf("expected 3 warnings, got %d", len(tl.GetMessagesByLevel("WARN")))
	}
	if !tl.HasMessage("long pause") {
		t.Error("long pause message missing")
	}
	msgs := tl.GetMessages()
	if msgs[0].Fields["new"] != 3 {
		t.Errorf("pass fields not captured: %v", msgs[0].Fields)
	}

	tl.Clear()
	LogScrapeProgress(tl, 3, 4)
	LogScrapeProgress(tl, 0, 0)
	msgs = tl.GetMessages()
	if len(msgs) != 2 || msgs[0].Fields["percentage"] != "75.0%" {
		t.Errorf("unexpected progress lines: %+v", msgs)
	}
	if msgs[1].Fields["percentage"] != "0.0%" {
		t.Errorf("zero target should report 0%%, got %v", msgs[1].Fields["percentage"])
	}
}

func TestTestLoggerSharesSink(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("component", "engine").WithError(errors.New("x"))
	child.Info("hello")

	msgs := tl.GetMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Fields["component"] != "engine" || msgs[0].Error == nil {
		t.Errorf("child context lost: %+v", msgs[0])
	}

	tl.Clear()
	if len(tl.GetMessages()) != 0 {
		t.Error("Clear did not reset messages")
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	defer func() { globalLogger = prev }()

	tl := NewTestLogger()
	SetLogger(tl)
	WithField("k", "v").Info("via global")
	LogComponentStart("engine", Fields{"target": 10})
	LogComponentStop("engine", "done")

	if len(tl.GetMessages()) != 3 {
		t.Errorf("expected 3 messages, got %d", len(tl.GetMessages()))
	}
}
