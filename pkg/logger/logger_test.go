package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInfoCF_WritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "info")
	defer Init(nil, "info")

	InfoCF("agent", "hello", map[string]interface{}{"iteration": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "agent" {
		t.Errorf("component = %v, want agent", entry["component"])
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["iteration"] != float64(3) {
		t.Errorf("iteration = %v, want 3", entry["iteration"])
	}
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "info")
	defer Init(nil, "info")

	DebugCF("agent", "hidden", nil)
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered at info level")
	}

	Init(&buf, "debug")
	DebugCF("agent", "visible", nil)
	if !strings.Contains(buf.String(), "visible") {
		t.Error("debug message should appear at debug level")
	}
}
