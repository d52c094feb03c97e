package logger

// OutputCategory defines a category of CLI output that can be enabled/disabled.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults OutputCategory = iota // Tables, written file list
	OutputErrors                        // Errors with hints

	// Level 1 (-v)
	OutputProgress   // Window progress bar
	OutputRunSummary // Per-run totals, degraded community windows

	// Level 2 (-vv)
	OutputWindowDetail // Per-window descriptors
	OutputTiming       // Phase timing
	OutputConfig       // Resolved configuration

	// Level 3 (-vvv)
	OutputFallbacks  // Community strategy failures and reasons
	OutputSQLQueries // Run store statements
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults: VerbosityUser,
	OutputErrors:  VerbosityUser,

	OutputProgress:   VerbosityInfo,
	OutputRunSummary: VerbosityInfo,

	OutputWindowDetail: VerbosityDebug,
	OutputTiming:       VerbosityDebug,
	OutputConfig:       VerbosityDebug,

	OutputFallbacks:  VerbosityTrace,
	OutputSQLQueries: VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityTrace
	}
	return verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputResults:      "results",
	OutputErrors:       "errors",
	OutputProgress:     "progress",
	OutputRunSummary:   "run-summary",
	OutputWindowDetail: "window-detail",
	OutputTiming:       "timing",
	OutputConfig:       "config",
	OutputFallbacks:    "fallbacks",
	OutputSQLQueries:   "sql",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}
