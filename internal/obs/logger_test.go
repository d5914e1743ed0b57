package obs

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestStdLogger_MinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := StdLogger{L: log.New(&buf, "", 0), Min: Warn, Pref: "srv"}

	l.Logf(Info, "dropped %d", 1)
	l.Logf(Error, "kept %d", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("Info line should have been filtered: %q", out)
	}
	if !strings.Contains(out, "srv[ERROR] kept 2") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   Debug,
		"INFO":    Info,
		"":        Info,
		"warning": Warn,
		"error":   Error,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Error("Expected NopLogger for nil")
	}
	if _, ok := MeterOrNop(nil).(NopMeter); !ok {
		t.Error("Expected NopMeter for nil")
	}
}
