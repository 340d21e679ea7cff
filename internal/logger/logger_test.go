package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/jursonmo/netroute"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRouteResultJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "json", &buf).WithComponent("apply")
	l.RouteResult(netroute.Result{
		Changed:        true,
		Output:         netroute.MsgAdded,
		Destination:    "10.0.0.0/24",
		Gateway:        "192.168.1.1",
		InterfaceAlias: "eth0",
		Metric:         1,
		State:          netroute.StatePresent,
	})

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if m["component"] != "apply" || m["destination"] != "10.0.0.0/24" || m["changed"] != true {
		t.Fatalf("unexpected log record: %v", m)
	}
	if _, ok := m["source"]; ok {
		t.Fatal("source should only be added at debug level")
	}
}

func TestTextFormatAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "text", &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record passed a warn logger: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected text output: %s", out)
	}
}
