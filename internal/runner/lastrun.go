package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"confctl/internal/logger"
)

// RunRecord is the persisted outcome of one configuration's most recent
// run.
type RunRecord struct {
	Status      string    `json:"status"` // "ok" or "failed"
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// LastRun is the JSON report kept in the cache root. It is informational
// (for the user and for debugging); correctness never depends on it, so
// load and save are both tolerant.
type LastRun struct {
	Runs map[string]RunRecord `json:"runs"`
}

// LoadLastRun loads the saved report from path. A missing or unreadable
// file yields an empty report.
func LoadLastRun(path string) *LastRun {
	empty := &LastRun{Runs: make(map[string]RunRecord)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return empty
	}
	var last LastRun
	if err := json.Unmarshal(raw, &last); err != nil {
		logger.Debug("[DEBUG] Ignoring unreadable last-run report %s: %v\n", path, err)
		return empty
	}
	if last.Runs == nil {
		last.Runs = make(map[string]RunRecord)
	}
	return &last
}

// Record stores the outcome of one result.
func (l *LastRun) Record(res Result) {
	rec := RunRecord{
		Status:      "ok",
		CompletedAt: time.Now(),
		DurationMS:  res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		rec.Status = "failed"
		rec.Error = res.Err.Error()
	}
	l.Runs[res.Name] = rec
}

// SaveLastRun writes the report to path, pretty-printed. Errors are logged
// but not propagated; a failed report write must not fail the run.
func SaveLastRun(path string, last *LastRun) {
	raw, err := json.MarshalIndent(last, "", "  ")
	if err != nil {
		logger.Error("[ERROR] Failed to marshal last-run report: %v\n", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Error("[ERROR] Failed to create %s: %v\n", filepath.Dir(path), err)
		return
	}
	logger.Debug("[DEBUG] Writing last-run report to %s\n", path)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		logger.Error("[ERROR] Failed to write last-run report %s: %v\n", path, err)
	}
}
