// File: internal/executor/errors.go
package executor

import "errors"

// ErrExecution signals that a validated plan could not be carried out: the
// input driver rejected or failed the operation, the target coordinates fall
// outside the screen, or a key descriptor could not be resolved.
var ErrExecution = errors.New("executor: action execution failed")
