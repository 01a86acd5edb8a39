// Package async runs reindexing in the background, so the MCP server can
// answer (from the old index, or with empty results) while a rebuild runs.
package async

import (
	"sync"
	"time"
)

// IndexingStatus represents the overall state of a background rebuild.
type IndexingStatus string

const (
	// StatusIndexing indicates a rebuild is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady indicates the rebuild finished.
	StatusReady IndexingStatus = "ready"
	// StatusError indicates the rebuild failed.
	StatusError IndexingStatus = "error"
)

// IndexingStage represents the current step of a rebuild.
type IndexingStage string

const (
	// StageOpening is set while the record source is opened.
	StageOpening IndexingStage = "opening_source"
	// StageIndexing is set while records are written.
	StageIndexing IndexingStage = "indexing"
)

// IndexProgressSnapshot is an immutable snapshot of rebuild progress.
type IndexProgressSnapshot struct {
	Status         string         `json:"status"`
	Stage          string         `json:"stage"`
	RunID          string         `json:"run_id,omitempty"`
	DoctypesTotal  int            `json:"doctypes_total"`
	DoctypesDone   int            `json:"doctypes_done"`
	RecordsIndexed int            `json:"records_indexed"`
	Counts         map[string]int `json:"counts,omitempty"`
	ProgressPct    float64        `json:"progress_pct"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

// IndexProgress provides thread-safe tracking of a rebuild.
type IndexProgress struct {
	mu sync.RWMutex

	status        IndexingStatus
	stage         IndexingStage
	runID         string
	doctypesTotal int
	counts        map[string]int
	startTime     time.Time
	errorMessage  string
}

// NewIndexProgress creates a tracker in the indexing state.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{
		status:    StatusIndexing,
		stage:     StageOpening,
		counts:    make(map[string]int),
		startTime: time.Now(),
	}
}

// SetStage updates the current stage and the number of doctypes to rebuild.
func (p *IndexProgress) SetStage(stage IndexingStage, doctypes int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.doctypesTotal = doctypes
}

// DoctypeDone records that n records of doctype were written.
// It is nil-safe so it can be wired as a reindex observer unconditionally.
func (p *IndexProgress) DoctypeDone(doctype string, n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts[doctype] += n
}

// SetRunID records the run id of the finished rebuild.
func (p *IndexProgress) SetRunID(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runID = id
}

// SetError marks the rebuild as failed.
func (p *IndexProgress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks the rebuild as complete.
func (p *IndexProgress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// IsIndexing returns true while the rebuild is in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns a copy of the current progress.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	counts := make(map[string]int, len(p.counts))
	records := 0
	for doctype, n := range p.counts {
		counts[doctype] = n
		records += n
	}

	var progressPct float64
	if p.doctypesTotal > 0 {
		progressPct = float64(len(counts)) / float64(p.doctypesTotal) * 100.0
	}

	return IndexProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		RunID:          p.runID,
		DoctypesTotal:  p.doctypesTotal,
		DoctypesDone:   len(counts),
		RecordsIndexed: records,
		Counts:         counts,
		ProgressPct:    progressPct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
