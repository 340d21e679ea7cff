package netroute

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	s := FileReport{Path: path}

	got, err := s.Load()
	if err != nil || got != nil {
		t.Fatalf("Load() of missing file = %v, %v", got, err)
	}

	results := []Result{{
		Changed:        true,
		Output:         MsgAdded,
		Destination:    "192.168.2.10/32",
		Gateway:        "192.168.1.1",
		InterfaceAlias: "eth1",
		Metric:         1,
		State:          StatePresent,
	}}
	if err := s.Save(results); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}

	got, err = s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got) != 1 || got[0] != results[0] {
		t.Fatalf("Load() = %+v, want %+v", got, results)
	}
}

func TestFileReportEmptyPath(t *testing.T) {
	if err := (FileReport{}).Save(nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
