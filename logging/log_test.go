package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitLoggersTo(&buf, 2)
	defer InitLoggersTo(&bytes.Buffer{}, 0)

	Log(2, "opened %d stations", 3)
	Log(3, "hidden %s", "debug")
	out := buf.String()
	if !strings.Contains(out, "opened 3 stations") {
		t.Errorf("info message missing from %q", out)
	}
	if strings.Contains(out, "hidden debug") {
		t.Errorf("debug message should be dropped at level 2, got %q", out)
	}
	if !Enabled(1) || Enabled(3) {
		t.Errorf("Enabled does not match level 2")
	}
}
