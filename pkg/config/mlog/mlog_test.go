package mlog

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(INFO)
	defer SetOutput(os.Stderr)

	D("hidden %d", 1)
	I("shown %d", 2)
	WT("title", "warn")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug log must be filtered: %s", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("info log missing: %s", out)
	}
	if !strings.Contains(out, "title") {
		t.Errorf("title missing: %s", out)
	}
	if IsDebug() {
		t.Errorf("IsDebug() = true at INFO")
	}

	SetLevel(VERBOSE)
	defer SetLevel(INFO)
	if !IsVerbose() || !IsDebug() {
		t.Errorf("VERBOSE must enable debug")
	}
}

func TestTranslatedMessage(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(INFO)
	defer SetOutput(os.Stderr)

	// 翻訳済みの文言は書式として解釈しない
	message := "進捗 50%d 完了 100%"
	I("%s", message)
	ET("失敗", "%s", message)

	out := buf.String()
	if strings.Count(out, message) != 2 {
		t.Errorf("message must be logged verbatim: %s", out)
	}
	if strings.Contains(out, "%!") {
		t.Errorf("message was formatted: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"verbose": VERBOSE,
		"DEBUG":   DEBUG,
		"info":    INFO,
		"warn":    WARN,
		"error":   ERROR,
		"unknown": INFO,
	}
	for s, expected := range tests {
		if actual := ParseLevel(s); actual != expected {
			t.Errorf("ParseLevel(%s) = %v, want %v", s, actual, expected)
		}
	}
}

func TestSaveDiagnostic(t *testing.T) {
	dir := t.TempDir()
	path, err := SaveDiagnostic(dir, "motion", errors.New("boom"))
	if err != nil {
		t.Fatalf("SaveDiagnostic() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "boom") {
		t.Errorf("diagnostic content = %s", content)
	}
	if !strings.HasPrefix(path[len(dir)+1:], "motion.") {
		t.Errorf("diagnostic path = %s", path)
	}
}
