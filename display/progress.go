package display

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/pipeline"
)

var (
	_ pipeline.Progress = (*CLIProgress)(nil)
	_ pipeline.Progress = (*JSONProgress)(nil)
)

// CLIProgress shows run progress in the terminal with pterm.
type CLIProgress struct {
	verbosity int
	total     int

	mu  sync.Mutex
	bar *pterm.ProgressbarPrinter
}

// NewCLIProgress shows a progress bar over total windows.
func NewCLIProgress(verbosity, total int) *CLIProgress {
	return &CLIProgress{verbosity: verbosity, total: total}
}

// EmitStage announces a stage; the window stage starts the progress bar.
func (e *CLIProgress) EmitStage(stage string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBar()
	if stage == pipeline.StageWindows && e.total > 0 {
		bar, err := pterm.DefaultProgressbar.WithTotal(e.total).WithTitle("Windows").Start()
		if err == nil {
			e.bar = bar
			return
		}
	}
	pterm.Printf("%s: %s\n", pterm.LightCyan(stage), message)
}

// EmitProgress advances the bar.
func (e *CLIProgress) EmitProgress(count int, metadata map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bar != nil {
		e.bar.Add(count)
	}
	if logger.ShouldOutput(e.verbosity, logger.OutputWindowDetail) && len(metadata) > 0 {
		pterm.Printfln("  window %v: %v nodes", metadata[logger.FieldWindow], metadata[logger.FieldNodes])
	}
}

// EmitComplete prints the run summary.
func (e *CLIProgress) EmitComplete(summary map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBar()
	pterm.Success.Println("Run complete")
	if logger.ShouldOutput(e.verbosity, logger.OutputRunSummary) {
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pterm.Printf("  %s: %v\n", k, summary[k])
		}
	}
}

// EmitError prints an error.
func (e *CLIProgress) EmitError(stage string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopBar()
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

func (e *CLIProgress) stopBar() {
	if e.bar != nil {
		e.bar.Stop()
		e.bar = nil
	}
}

// ProgressEvent is one line of JSONProgress output.
type ProgressEvent struct {
	Type      string                 `json:"type"` // stage, progress, complete, error
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// JSONProgress writes progress as JSON lines.
type JSONProgress struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONProgress writes events to w.
func NewJSONProgress(w io.Writer) *JSONProgress {
	return &JSONProgress{encoder: json.NewEncoder(w)}
}

func (e *JSONProgress) emit(kind string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encoder.Encode(ProgressEvent{Type: kind, Timestamp: time.Now(), Data: data})
}

// EmitStage emits a stage event.
func (e *JSONProgress) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

// EmitProgress emits a progress event with metadata merged in.
func (e *JSONProgress) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{"count": count}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

// EmitComplete emits the run summary.
func (e *JSONProgress) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event.
func (e *JSONProgress) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{"stage": stage, "error": fmt.Sprint(err)})
}
