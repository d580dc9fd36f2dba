package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSONToFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "rpd.log")

	logger, closer, err := New(Options{Level: "warn", File: path, JSON: true, Stderr: &console})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "file", "a.pdf")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(console.Bytes()), &entry); err != nil {
		t.Fatalf("console output not a single JSON line: %q", console.String())
	}
	if entry["msg"] != "shown" || entry["file"] != "a.pdf" {
		t.Errorf("entry = %v", entry)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"shown"`) || strings.Contains(string(data), "hidden") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewRejectsLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error")
	}
}
