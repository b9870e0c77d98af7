package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"ukepenger/internal/platform/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: " WARN ", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tests := []struct {
		name     string
		cfg      config.LoggingConfig
		wantErr  bool
		wantFile string
		wantText bool
	}{
		{name: "JSON Stdout", cfg: config.LoggingConfig{Format: "json", Output: "stdout"}},
		{name: "Text Stdout", cfg: config.LoggingConfig{Format: "text", Output: "stdout"}, wantText: true},
		{name: "File Creates Directory", cfg: config.LoggingConfig{Format: "text", Output: "file", FilePath: filepath.Join(dir, "logs", "app.log")}, wantFile: filepath.Join(dir, "logs", "app.log")},
		{name: "File Without Path", cfg: config.LoggingConfig{Output: "file"}},
		{name: "Unusable Directory", cfg: config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "app.log")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			w, err := writer(tt.cfg, &stdout)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("writer() error = %v", err)
			}

			switch {
			case tt.wantFile != "":
				f, ok := w.(*os.File)
				if !ok {
					t.Fatalf("Expected *os.File, got %T", w)
				}
				defer f.Close()
				if _, err := os.Stat(tt.wantFile); err != nil {
					t.Errorf("Expected log file at %s: %v", tt.wantFile, err)
				}
			case tt.wantText:
				if _, ok := w.(zerolog.ConsoleWriter); !ok {
					t.Errorf("Expected ConsoleWriter, got %T", w)
				}
			default:
				if w != &stdout {
					t.Errorf("Expected stdout, got %T", w)
				}
			}
		})
	}
}

func TestNew_StampsService(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Info().Str("component", "payments").Msg("settled")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("Expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != serviceName {
		t.Errorf("Expected service %s, got %v", serviceName, line["service"])
	}
	if line["message"] != "settled" || line["component"] != "payments" {
		t.Errorf("Unexpected log line %v", line)
	}
	if !strings.Contains(buf.String(), `"time"`) {
		t.Error("Expected timestamp field")
	}
}
