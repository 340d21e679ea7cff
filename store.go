package netroute

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileReport writes reconciliation results to disk as a JSON array (atomic write).
type FileReport struct {
	Path string
}

func (s FileReport) Save(results []Result) error {
	if s.Path == "" {
		return fmt.Errorf("report path is empty")
	}
	if results == nil {
		results = []Result{}
	}

	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

// Load reads a report written by Save. A missing file yields no results.
func (s FileReport) Load() ([]Result, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("report path is empty")
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	var results []Result
	if err := json.Unmarshal(b, &results); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", s.Path, err)
	}
	return results, nil
}
