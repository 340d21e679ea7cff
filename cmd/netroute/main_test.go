package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jursonmo/netroute"
)

func TestPrintFailureKind(t *testing.T) {
	_, err := netroute.RouteSpec{Destination: "bogus"}.Normalize()
	if err == nil {
		t.Fatal("expected a validation error")
	}

	var buf bytes.Buffer
	printFailure(&buf, "bogus", err)

	var got failure
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failure is not JSON: %v", err)
	}
	if !got.Failed || got.Kind != "Validation" || got.Destination != "bogus" {
		t.Fatalf("unexpected failure: %+v", got)
	}
}

func TestPrintFailurePlainError(t *testing.T) {
	var buf bytes.Buffer
	printFailure(&buf, "", errors.New("boom"))
	if strings.Contains(buf.String(), `"kind"`) {
		t.Fatalf("kind should be omitted for non-route errors: %s", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd(&buf)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "netroute "+version) {
		t.Fatalf("unexpected version output: %q", buf.String())
	}
}

func TestApplyInvalidDestination(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCmd(&buf)
	cmd.SetArgs([]string{"apply", "--destination", "nope", "--check", "--log-level", "error"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error")
	}

	var got failure
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if got.Kind != "Validation" {
		t.Fatalf("kind = %q, want Validation", got.Kind)
	}
}
