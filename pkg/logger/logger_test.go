package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"imgfetch/pkg/config"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}
	return l, &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"warn level", &config.LoggingConfig{Level: "warn"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid log level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "imgfetch.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger")
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
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Info("hidden message")
	l.Warn("visible message")

	output := buf.String()
	if strings.Contains(output, "hidden message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(output, "visible message") {
		t.Error("warn message not found in output")
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.WithField("url", "https://example.com/a.png").
		WithFields(map[string]interface{}{
			"bytes":  int64(42),
			"stored": true,
		}).
		Debug("chained fields")

	output := buf.String()
	for _, want := range []string{
		"chained fields",
		`"url":"https://example.com/a.png"`,
		`"bytes":42`,
		`"stored":true`,
		`"app":"imgfetch"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	if l.WithError(nil) != l {
		t.Error("WithError(nil) should return the same logger")
	}

	l.WithError(errors.New("connection reset")).Error("error occurred")

	output := buf.String()
	if !strings.Contains(output, "error occurred") || !strings.Contains(output, "connection reset") {
		t.Errorf("error details missing from output: %s", output)
	}
}

func TestStructuredLogging(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.InfoWithFields("probe finished", map[string]interface{}{
		"status":   200,
		"duration": 150 * time.Millisecond,
	})

	output := buf.String()
	if !strings.Contains(output, `"status":200`) {
		t.Errorf("status field missing from output: %s", output)
	}
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://example.com/a.png", 503, time.Second)
	LogOutcome(tl, "id-1", "https://example.com/a.png", "failed", "", errors.New("boom"))
	LogOutcome(tl, "id-2", "https://example.com/b.png", "stored", "b.png", nil)

	if len(tl.GetMessagesByLevel("ERROR")) != 1 {
		t.Error("expected 5xx request to be logged at error level")
	}
	warns := tl.GetMessagesByLevel("WARN")
	if len(warns) != 1 || warns[0].Error == nil {
		t.Fatalf("expected one failed outcome with an error, got %+v", warns)
	}
	infos := tl.GetMessagesByLevel("INFO")
	if len(infos) != 1 || infos[0].Fields["file"] != "b.png" {
		t.Errorf("expected stored outcome with file field, got %+v", infos)
	}
}

func TestTestLoggerSharesStore(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("url", "u")
	child.Info("from child")

	if !tl.HasMessage("from child") {
		t.Error("parent should see messages logged by child")
	}
	tl.Clear()
	if len(tl.GetMessages()) != 0 {
		t.Error("Clear() should drop messages")
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "disabled"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}

	nop := NewNopLogger()
	SetLogger(nop)
	defer SetLogger(nil)

	WithField("key", "value").Info("with field")
	WithFields(map[string]interface{}{"k1": "v1"}).Info("with fields")
	WithError(errors.New("test")).Error("with error")
}

func TestConsoleWriterColor(t *testing.T) {
	tests := []struct {
		name  string
		color bool
	}{
		{"colored", true},
		{"plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zl := zerolog.New(consoleWriter(&buf, tt.color))
			zl.Warn().Str("url", "https://example.com/a.png").Msg("slow server")

			out := buf.String()
			if !strings.Contains(out, "WARN") || !strings.Contains(out, "slow server") {
				t.Errorf("unexpected output: %q", out)
			}
			if got := strings.Contains(out, "\033["); got != tt.color {
				t.Errorf("escape codes present = %v, want %v: %q", got, tt.color, out)
			}
		})
	}
}
