package contextpack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/workspace"
)

func testSetup(t *testing.T) (*workspace.Layout, string, *statedoc.Document, *taskgraph.Graph) {
	t.Helper()
	layout := workspace.NewLayout(t.TempDir())
	runID := "run_20250601_120000_test"
	if err := layout.EnsureRunDirs(runID); err != nil {
		t.Fatalf("EnsureRunDirs: %v", err)
	}

	g := taskgraph.DefaultGraph()
	doc, err := statedoc.New(runID, "What is the plasma frequency?", "Derive it from first principles.", "cfg: 1", g)
	if err != nil {
		t.Fatalf("statedoc.New: %v", err)
	}
	return layout, runID, doc, g
}

func TestBuildBasicSections(t *testing.T) {
	layout, runID, doc, g := testSetup(t)

	pack, err := Build(layout, runID, doc, g.Stages[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, want := range []string{
		"# Context Pack",
		"## Goal + constraints",
		"Derive it from first principles.",
		"Stage 1: Literature + definitions",
		"- 1.1 Search + rank candidate papers (todo)",
		"- 1.2 Extract definitions + assumptions from paper pool (todo)",
		"## Current best answer",
		"_TBD_",
		"## Key equations",
		"## Key assumptions",
		"## Verifier status",
		"- stage_verifier: not_run",
		"## Paper pool summary",
		"_none_",
	} {
		if !strings.Contains(pack, want) {
			t.Errorf("pack missing %q:\n%s", want, pack)
		}
	}
}

func TestBuildReadsArtifactsAndCandidates(t *testing.T) {
	layout, runID, doc, g := testSetup(t)
	runDir := layout.RunDir(runID)

	eqBank := "E = mc^2\n\nomega_p^2 = n e^2 / (eps0 m)\n"
	if err := os.WriteFile(filepath.Join(runDir, "equation_bank.md"), []byte(eqBank), 0o644); err != nil {
		t.Fatalf("write equation_bank: %v", err)
	}
	candidates := `{"papers": [{"title": "Plasma Waves", "year": 1992}, {"title": "Kinetic Theory"}]}`
	if err := os.WriteFile(layout.CandidatesPath(runID), []byte(candidates), 0o644); err != nil {
		t.Fatalf("write candidates: %v", err)
	}

	pack, err := Build(layout, runID, doc, g.Stages[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.Contains(pack, "omega_p^2 = n e^2 / (eps0 m)") {
		t.Errorf("equation bank excerpt missing:\n%s", pack)
	}
	if !strings.Contains(pack, "- Plasma Waves (1992)") {
		t.Errorf("paper summary missing:\n%s", pack)
	}
	if !strings.Contains(pack, "- Kinetic Theory (unknown year)") {
		t.Errorf("paper without year should read 'unknown year':\n%s", pack)
	}
}

func TestBuildTruncatesLongSections(t *testing.T) {
	layout, runID, doc, g := testSetup(t)

	long := strings.Repeat("line\n", 300)
	if err := doc.ReplaceSection(statedoc.SectionBestAnswer, long); err != nil {
		t.Fatalf("ReplaceSection: %v", err)
	}

	pack, err := Build(layout, runID, doc, g.Stages[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(pack, "... (truncated)") {
		t.Error("long best answer should be truncated")
	}
}

func TestPaperPoolSummaryInvalidJSON(t *testing.T) {
	layout, runID, doc, g := testSetup(t)
	if err := os.WriteFile(layout.CandidatesPath(runID), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write candidates: %v", err)
	}

	pack, err := Build(layout, runID, doc, g.Stages[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(pack, "_invalid_json_") {
		t.Errorf("invalid JSON should be flagged, not fatal:\n%s", pack)
	}
}

func TestWritePack(t *testing.T) {
	layout, runID, _, _ := testSetup(t)

	path, err := WritePack(layout, runID, "# Context Pack\ncontent\n")
	if err != nil {
		t.Fatalf("WritePack: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# Context Pack\ncontent\n" {
		t.Errorf("content = %q", data)
	}
}
