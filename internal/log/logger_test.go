package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/felixgeelhaar/candidash/internal/errors"
)

type codedErr struct{ code string }

func (e codedErr) Error() string     { return "coded failure" }
func (e codedErr) ErrorCode() string { return e.code }

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_FormatsAndLevels(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		logFn   func(l *Logger)
		wantOut bool
		check   func(t *testing.T, out string)
	}{
		{
			name:    "json info",
			config:  Config{Level: LevelInfo, Format: FormatJSON},
			logFn:   func(l *Logger) { l.Info("hello", "k", "v") },
			wantOut: true,
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"k":"v"`) {
					t.Errorf("unexpected json output: %s", out)
				}
			},
		},
		{
			name:    "text warn",
			config:  Config{Level: LevelWarn, Format: FormatText},
			logFn:   func(l *Logger) { l.Warn("careful") },
			wantOut: true,
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "msg=careful") {
					t.Errorf("unexpected text output: %s", out)
				}
			},
		},
		{
			name:    "debug filtered at warn",
			config:  Config{Level: LevelWarn, Format: FormatJSON},
			logFn:   func(l *Logger) { l.Debug("noise") },
			wantOut: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = NewOutput(&buf)
			tt.logFn(New(tt.config))

			if got := buf.Len() > 0; got != tt.wantOut {
				t.Fatalf("output present = %v, want %v (%q)", got, tt.wantOut, buf.String())
			}
			if tt.check != nil {
				tt.check(t, buf.String())
			}
		})
	}
}

func TestNew_ServiceName(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: LevelInfo, Output: NewOutput(&buf), ServiceName: "candidash"}).Info("x")

	if entry := decodeLine(t, &buf); entry["service"] != "candidash" {
		t.Errorf("service = %v, want candidash", entry["service"])
	}
}

func TestWithError(t *testing.T) {
	t.Run("nil error returns same logger", func(t *testing.T) {
		l := Discard()
		if l.WithError(nil) != l {
			t.Error("WithError(nil) should return the receiver")
		}
	})

	t.Run("candidash error", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: LevelInfo, Output: NewOutput(&buf)})
		err := errors.Wrap(errors.ErrCodeSessionStore, "save failed", fmt.Errorf("disk full")).
			WithSuggestion("free some space")

		l.WithError(err).Error("operation failed")
		entry := decodeLine(t, &buf)

		if entry["error"] != "save failed" {
			t.Errorf("error = %v", entry["error"])
		}
		if entry["error_code"] != "SESSION-003" {
			t.Errorf("error_code = %v", entry["error_code"])
		}
		if entry["cause"] != "disk full" {
			t.Errorf("cause = %v", entry["cause"])
		}
		if _, ok := entry["suggestions"]; !ok {
			t.Error("suggestions missing")
		}
	})

	t.Run("wrapped coded error", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: LevelInfo, Output: NewOutput(&buf)})

		l.WithError(fmt.Errorf("login: %w", codedErr{code: "AUTH_NETWORK_ERROR"})).Error("failed")
		entry := decodeLine(t, &buf)

		if entry["error_code"] != "AUTH_NETWORK_ERROR" {
			t.Errorf("error_code = %v", entry["error_code"])
		}
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: LevelInfo, Output: NewOutput(&buf)})

		l.WithError(fmt.Errorf("boom")).Error("failed")
		entry := decodeLine(t, &buf)

		if entry["error"] != "boom" {
			t.Errorf("error = %v", entry["error"])
		}
		if _, ok := entry["error_code"]; ok {
			t.Error("plain errors should not carry error_code")
		}
	})
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: NewOutput(&buf)})

	l.LogError(context.Background(), "nothing", nil)
	if buf.Len() != 0 {
		t.Fatalf("LogError(nil) should not log, got %q", buf.String())
	}

	l.LogError(context.Background(), "logout failed", codedErr{code: "AUTH_SERVICE_ERROR"})
	entry := decodeLine(t, &buf)
	if entry["msg"] != "logout failed" || entry["level"] != "ERROR" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	levels := map[string]Level{
		"debug": LevelDebug, "DEBUG": LevelDebug, "info": LevelInfo, "warning": LevelWarn,
		"WARN": LevelWarn, "error": LevelError, "bogus": LevelInfo,
	}
	for in, want := range levels {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if ParseFormat("console") != FormatText || ParseFormat("TEXT") != FormatText || ParseFormat("xml") != FormatJSON {
		t.Error("ParseFormat returned unexpected values")
	}
	if Level(99).String() != "UNKNOWN" || LevelWarn.String() != "WARN" {
		t.Error("Level.String returned unexpected values")
	}
}

func TestWithGroup_ContextVariants(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Format: FormatJSON, Output: NewOutput(&buf)})
	ctx := context.Background()

	l.WithGroup("http").DebugContext(ctx, "backend request", "status", 200)
	entry := decodeLine(t, &buf)
	group, ok := entry["http"].(map[string]any)
	if !ok || group["status"] != float64(200) {
		t.Errorf("expected grouped attributes, got %v", entry)
	}

	for _, logFn := range []func(){
		func() { l.InfoContext(ctx, "info") },
		func() { l.WarnContext(ctx, "warn") },
	} {
		buf.Reset()
		logFn()
		if buf.Len() == 0 {
			t.Error("context variant produced no output")
		}
	}
}

func TestFromStrings(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromStrings("debug", "json", &buf)

	if cfg.Level != LevelDebug || cfg.Format != FormatJSON || !cfg.AddSource {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if dev := DevelopmentConfig(); cfg.ServiceName != dev.ServiceName || cfg.AddSource != dev.AddSource {
		t.Errorf("debug level should start from DevelopmentConfig: %+v", cfg)
	}
	if cfg.Output.Writer() != &buf {
		t.Error("output writer not applied")
	}

	def := FromStrings("", "", nil)
	if def.Level != LevelWarn || def.Format != FormatText {
		t.Errorf("defaults not applied: %+v", def)
	}
}

func TestDefaultLogger(t *testing.T) {
	SetDefaultLogger(nil)
	first := DefaultLogger()
	if first == nil || DefaultLogger() != first {
		t.Fatal("DefaultLogger should lazily create and then reuse one logger")
	}

	custom := Discard()
	SetDefaultLogger(custom)
	defer SetDefaultLogger(nil)
	if DefaultLogger() != custom {
		t.Error("SetDefaultLogger was not honoured")
	}
}
