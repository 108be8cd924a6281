package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/relex/pkg/logger"
)

func TestConsoleLoggerKeyvals(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(NewConsoleLogger(ConsoleLoggerParams{Output: &buf, Format: "logfmt"}))
	t.Cleanup(func() { logger.Init() })

	logger.Log("[CV] Fold done", "fold", 3)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "fold=3") {
		t.Fatalf("expected keyvals in output, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug message to be filtered, got %q", out)
	}
}

func TestConsoleLoggerDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(ConsoleLoggerParams{Output: &buf, Debug: true, Prefix: "relex"})
	l.Debug("loading corpus", "path", "abstracts")

	out := buf.String()
	if !strings.Contains(out, "loading corpus") || !strings.Contains(out, "relex") {
		t.Fatalf("expected debug line with prefix, got %q", out)
	}
}
