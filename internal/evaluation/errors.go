package evaluation

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat rejects a submission whose audio extension is
// outside the allow-list. Raised before any side effect.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// PersistenceError marks a pipeline where every upstream call
// succeeded but the record could not be stored. Operators can tell
// "work was done but not recorded" apart from "work was never done".
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("evaluation completed but the record could not be saved: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
