package cli

import "time"

// Default values for CLI flags and output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// ProgressInterval is how often `get` reports transfer progress on a terminal.
	ProgressInterval = 500 * time.Millisecond
	// setCommandArgs is the number of arguments expected by `config set`.
	setCommandArgs = 2
)
