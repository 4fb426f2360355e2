package migrate

import (
	"errors"
	"fmt"
)

var (
	// ErrProductionReset is returned when a reset is attempted in production.
	ErrProductionReset = errors.New("refusing to reset the database in a production environment: " +
		"this would wipe every table and re-apply all migrations, which is almost certainly not what you meant")
	// ErrToolNotFound is returned when the migration tool cannot be resolved.
	ErrToolNotFound = errors.New("migration tool not found")
)

// ExitError reports a migration tool run that exited with a non-zero code.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

// ExitCode extracts the tool's exit code from err, if err carries one.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
