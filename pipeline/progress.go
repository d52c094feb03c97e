package pipeline

// Progress receives progress updates from a run. Implementations must be
// safe for concurrent use: phase 1 reports from several goroutines.
type Progress interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress announces that count more windows finished, with optional metadata
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces successful completion with summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces an error during processing
	EmitError(stage string, err error)
}

// Stage names reported through Progress.
const (
	StageWindows  = "windows"
	StageTimeline = "timeline"
	StageAnalysis = "analysis"
)

type nopProgress struct{}

func (nopProgress) EmitStage(string, string)                {}
func (nopProgress) EmitProgress(int, map[string]interface{}) {}
func (nopProgress) EmitComplete(map[string]interface{})      {}
func (nopProgress) EmitError(string, error)                  {}
