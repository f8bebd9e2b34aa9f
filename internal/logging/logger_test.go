package logging

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
)

var linePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} \[(\w+)\] \[(\w+)\] \[(\w+)\] \S+\.go:\d+ - (.*)$`)

func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("ENGINE", &buf)
	logger.Info("advanced to orbit %d", 3)

	line := strings.TrimRight(buf.String(), "\n")
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		t.Fatalf("line does not match format: %q", line)
	}
	if m[1] != "INFO" || m[2] != "ENGINE" || m[3] != "ENGINE" {
		t.Fatalf("unexpected fields: %v", m[1:4])
	}
	if m[4] != "advanced to orbit 3" {
		t.Fatalf("unexpected message: %q", m[4])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("ENGINE", &buf).WithComponent("Torus")
	logger.Warn("no npc entities in realm %s", "void")

	if !strings.Contains(buf.String(), "[ENGINE] [Torus]") {
		t.Fatalf("component tag missing: %q", buf.String())
	}
}

func TestMinLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("ENGINE", &buf)
	logger.Debug("noisy detail")

	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at default level: %q", buf.String())
	}

	logger.SetMinLevel(LevelDebug)
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("debug should pass after lowering min level")
	}
}
