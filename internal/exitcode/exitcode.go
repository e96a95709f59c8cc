// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes returned by shoplist commands.
const (
	// Success indicates successful completion, including a declined confirmation.
	Success = 0

	// UserError indicates bad arguments, an unknown item number or rejected item text.
	UserError = 1

	// AuthError indicates a missing session, a wrong password or unusable config.
	AuthError = 2

	// BackendError indicates a failed store call, including partial bulk deletes.
	BackendError = 3
)
