package netroute

import (
	"errors"
	"reflect"
	"testing"
)

func TestReplaceSteps(t *testing.T) {
	errThen := errors.New("then failed")
	errUndo := errors.New("undo failed")

	tests := []struct {
		name      string
		firstE    error
		thenE     error
		undoE     error
		wantCalls []string
		wantErrs  []error
	}{
		{
			name:      "both steps succeed",
			wantCalls: []string{"first", "then"},
		},
		{
			name:      "first fails",
			firstE:    errors.New("first failed"),
			wantCalls: []string{"first"},
		},
		{
			name:      "then fails and is undone",
			thenE:     errThen,
			wantCalls: []string{"first", "then", "undo"},
			wantErrs:  []error{errThen},
		},
		{
			name:      "undo fails too",
			thenE:     errThen,
			undoE:     errUndo,
			wantCalls: []string{"first", "then", "undo"},
			wantErrs:  []error{errThen, errUndo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			step := func(name string, err error) func() error {
				return func() error {
					calls = append(calls, name)
					return err
				}
			}
			err := replaceSteps(step("first", tt.firstE), step("then", tt.thenE), step("undo", tt.undoE))
			if !reflect.DeepEqual(calls, tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
			if (err != nil) != (tt.firstE != nil || tt.thenE != nil) {
				t.Fatalf("err = %v", err)
			}
			for _, want := range tt.wantErrs {
				if !errors.Is(err, want) {
					t.Fatalf("err = %v, want it to wrap %v", err, want)
				}
			}
		})
	}
}
