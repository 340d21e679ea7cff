package netroute

import (
	"errors"
	"fmt"
)

// replaceSteps runs a two-step route replacement. When then fails, undo
// reverts first and both failures are returned.
func replaceSteps(first, then, undo func() error) error {
	if err := first(); err != nil {
		return err
	}
	if err := then(); err != nil {
		if rbErr := undo(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return nil
}
