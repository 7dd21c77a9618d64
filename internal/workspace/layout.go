// Package workspace defines the on-disk layout of physics-agent data:
// where runs, their documents, worker outputs, and ingested sources live.
package workspace

import (
	"os"
	"path/filepath"
)

// File and directory names within a run directory.
const (
	StateDocName    = "RESEARCH_STATE.md"
	ContextPackName = "context_pack.md"
	FinalOutputName = "final_output.md"
	OutputsDirName  = "agent_outputs"
	PatchesDirName  = "prompt_patches"
	CandidatesName  = "paper_candidates.json"
	RunsDirName     = "runs"
	SourcesDirName  = "sources"
	RecordDBName    = "records.db"
)

// Layout resolves paths under a single data directory.
type Layout struct {
	dataDir string
}

// NewLayout creates a Layout rooted at dataDir.
func NewLayout(dataDir string) *Layout {
	return &Layout{dataDir: dataDir}
}

// DataDir returns the root data directory.
func (l *Layout) DataDir() string {
	return l.dataDir
}

// RunsDir returns the directory holding all run directories.
func (l *Layout) RunsDir() string {
	return filepath.Join(l.dataDir, RunsDirName)
}

// RunDir returns the directory for a single run.
func (l *Layout) RunDir(runID string) string {
	return filepath.Join(l.RunsDir(), runID)
}

// StateDocPath returns the path of a run's state document.
func (l *Layout) StateDocPath(runID string) string {
	return filepath.Join(l.RunDir(runID), StateDocName)
}

// ContextPackPath returns the path of a run's most recent context pack.
func (l *Layout) ContextPackPath(runID string) string {
	return filepath.Join(l.RunDir(runID), ContextPackName)
}

// FinalOutputPath returns the path of a run's rendered final output.
func (l *Layout) FinalOutputPath(runID string) string {
	return filepath.Join(l.RunDir(runID), FinalOutputName)
}

// OutputsDir returns the directory holding per-task outcome snapshots.
func (l *Layout) OutputsDir(runID string) string {
	return filepath.Join(l.RunDir(runID), OutputsDirName)
}

// TaskOutputPath returns the JSON snapshot path for one task's outcome.
func (l *Layout) TaskOutputPath(runID, taskID string) string {
	return filepath.Join(l.OutputsDir(runID), taskID+".json")
}

// PatchesDir returns the directory holding prompt patch payloads.
func (l *Layout) PatchesDir(runID string) string {
	return filepath.Join(l.RunDir(runID), PatchesDirName)
}

// CandidatesPath returns the path of a run's source-pool summary.
func (l *Layout) CandidatesPath(runID string) string {
	return filepath.Join(l.RunDir(runID), CandidatesName)
}

// SourcesDir returns the directory holding stored copies of ingested documents.
func (l *Layout) SourcesDir() string {
	return filepath.Join(l.dataDir, SourcesDirName)
}

// DBPath returns the path of the provenance record database.
func (l *Layout) DBPath() string {
	return filepath.Join(l.dataDir, RecordDBName)
}

// EnsureRunDirs creates the directory tree for a run.
func (l *Layout) EnsureRunDirs(runID string) error {
	for _, dir := range []string{
		l.RunDir(runID),
		l.OutputsDir(runID),
		l.PatchesDir(runID),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSourcesDir creates the stored-sources directory.
func (l *Layout) EnsureSourcesDir() error {
	return os.MkdirAll(l.SourcesDir(), 0o755)
}
