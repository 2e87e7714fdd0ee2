// Package emoji provides symbol constants for CLI output, so every command
// reports progress with the same visual language.
package emoji

const (
	// Success marks a completed step or a clean verification.
	Success = "✓"

	// Error marks a failed step or a recorded per-item failure.
	Error = "✗"

	// Warning marks residual rows or a declined confirmation.
	Warning = "!"

	// Info marks plan details and suggested next actions.
	Info = "i"

	// Skipped marks work that was already done.
	Skipped = "-"
)

// Line formats a status line: symbol, a space, then the message.
func Line(symbol, message string) string {
	return symbol + " " + message + "\n"
}
