package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfo is one property of a recorded program run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecTable is the table that describes the recorded run.
const ExecTable = "exec_info"

// ExecRecorder records when and how the program was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the execution table in recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecTable, ExecInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start notes the start time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", now()},
		ExecInfo{"Command", strings.Join(os.Args, " ")})

	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}

	e.entries = append(e.entries,
		ExecInfo{"Working Directory", filepath.Dir(ex)})
}

// Set notes an extra property of the run.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes everything noted so far along with the end time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTable, entry)
	}

	e.recorder.InsertData(ExecTable, ExecInfo{"End Time", now()})
	e.entries = nil

	e.recorder.Flush()
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
