package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	Logger{Level: "debug", Format: "json"}.SetupWriter(&buf)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Debug().Str("feature", "f1").Msg("Feature added")
	log.Trace().Msg("hidden")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Output is not one JSON line: %q", buf.String())
	}
	if entry["feature"] != "f1" || entry["message"] != "Feature added" || entry["level"] != "debug" {
		t.Errorf("Entry = %v", entry)
	}
}

func TestSetupUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	Logger{Level: "loud", Format: "console", NoColor: true}.SetupWriter(&buf)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("GlobalLevel() = %v, want info", zerolog.GlobalLevel())
	}
	if !strings.Contains(buf.String(), "Unknown log level") {
		t.Errorf("Output = %q", buf.String())
	}
}
