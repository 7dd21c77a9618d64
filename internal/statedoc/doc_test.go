package statedoc

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/taskgraph"
)

func fixedClock(t *testing.T) {
	t.Helper()
	orig := nowFunc
	nowFunc = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	t.Cleanup(func() { nowFunc = orig })
}

func newTestDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := New(
		"run_20250601_120000_abcd",
		"Derive the dispersion relation for a cold plasma.",
		"Full problem statement here.",
		"run:\n  max_cycles: 8",
		taskgraph.DefaultGraph(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return doc
}

func TestNewHasAllSections(t *testing.T) {
	fixedClock(t)
	doc := newTestDoc(t)

	for _, title := range SectionTitles() {
		if _, err := doc.Section(title); err != nil {
			t.Errorf("missing section %q: %v", title, err)
		}
	}

	text := doc.Render()
	if !strings.HasPrefix(text, Preamble+"\n") {
		t.Errorf("document must start with preamble, got %q", text[:40])
	}
}

func TestParseRenderRoundTrip(t *testing.T) {
	fixedClock(t)
	doc := newTestDoc(t)

	text := doc.Render()
	reparsed := Parse(text)
	if got := reparsed.Render(); got != text {
		t.Errorf("render not stable under parse:\n--- first ---\n%s\n--- second ---\n%s", text, got)
	}
}

func TestSectionNotFound(t *testing.T) {
	doc := Parse("# Research State Doc\n\n## Header\n- run_id: r\n")
	_, err := doc.Section(SectionResults)
	if !errors.Is(err, errors.ErrSectionNotFound) {
		t.Errorf("got %v, want ErrSectionNotFound", err)
	}
}

func TestReplaceSectionPreservesOtherSections(t *testing.T) {
	fixedClock(t)
	doc := newTestDoc(t)

	before := make(map[string]string)
	for _, title := range SectionTitles() {
		body, err := doc.Section(title)
		if err != nil {
			t.Fatalf("Section(%q): %v", title, err)
		}
		before[title] = body
	}

	if err := doc.ReplaceSection(SectionBestAnswer, "The dispersion relation is omega^2 = ..."); err != nil {
		t.Fatalf("ReplaceSection: %v", err)
	}

	reparsed := Parse(doc.Render())
	for _, title := range SectionTitles() {
		body, err := reparsed.Section(title)
		if err != nil {
			t.Fatalf("Section(%q) after patch: %v", title, err)
		}
		if title == SectionBestAnswer {
			if body != "The dispersion relation is omega^2 = ..." {
				t.Errorf("patched section = %q", body)
			}
			continue
		}
		if body != before[title] {
			t.Errorf("section %q changed by patching another section:\nbefore: %q\nafter:  %q", title, before[title], body)
		}
	}
}

func TestHeaderFieldInline(t *testing.T) {
	fixedClock(t)
	doc := newTestDoc(t)

	value, ok, err := doc.HeaderField("run_id")
	if err != nil || !ok {
		t.Fatalf("HeaderField: ok=%v err=%v", ok, err)
	}
	if value != "run_20250601_120000_abcd" {
		t.Errorf("run_id = %q", value)
	}

	_, ok, err = doc.HeaderField("nonexistent")
	if err != nil {
		t.Fatalf("HeaderField: %v", err)
	}
	if ok {
		t.Error("nonexistent field reported as present")
	}
}

func TestHeaderFieldFenced(t *testing.T) {
	fixedClock(t)
	question := "What is the ```weird``` case?\nSecond line."
	doc, err := New("run_x", question, "spec", "cfg: 1", taskgraph.DefaultGraph())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	value, ok, err := doc.HeaderField("question")
	if err != nil || !ok {
		t.Fatalf("HeaderField: ok=%v err=%v", ok, err)
	}
	if value != question {
		t.Errorf("question = %q, want %q", value, question)
	}
}

func TestChooseFenceWidens(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{"plain text", "```"},
		{"has ``` inside", "````"},
		{"has ```` inside", "`````"},
	}
	for _, tt := range tests {
		if got := chooseFence(tt.payload, "`", 3); got != tt.want {
			t.Errorf("chooseFence(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

func TestTaskGraphRoundTripThroughDocument(t *testing.T) {
	fixedClock(t)
	doc := newTestDoc(t)

	g, err := doc.TaskGraph()
	if err != nil {
		t.Fatalf("TaskGraph: %v", err)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("extracted graph invalid: %v", err)
	}

	if err := g.SetStatus("1.1", taskgraph.StatusDone, nil); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := doc.UpdateTaskGraph(g); err != nil {
		t.Fatalf("UpdateTaskGraph: %v", err)
	}

	g2, err := doc.TaskGraph()
	if err != nil {
		t.Fatalf("TaskGraph after update: %v", err)
	}
	if g2.FindTask("1.1").Status != taskgraph.StatusDone {
		t.Error("status change lost through document round trip")
	}

	board, err := doc.Section(SectionTaskBoard)
	if err != nil {
		t.Fatalf("Section: %v", err)
	}
	if !strings.Contains(board, "- [x] 1.1 Search + rank candidate papers (done)") {
		t.Errorf("board not refreshed:\n%s", board)
	}
	if !strings.Contains(board, "- [ ] 1.2 ") {
		t.Errorf("todo task should stay unchecked:\n%s", board)
	}
}

func TestTaskGraphBlockMissing(t *testing.T) {
	doc := Parse("# Research State Doc\n\n## Task Graph (machine-readable)\nno fence here\n")
	_, err := doc.TaskGraph()
	if !errors.Is(err, errors.ErrGraphBlockNotFound) {
		t.Errorf("got %v, want ErrGraphBlockNotFound", err)
	}
}

func TestLoadAndWrite(t *testing.T) {
	fixedClock(t)
	doc := newTestDoc(t)
	path := filepath.Join(t.TempDir(), "RESEARCH_STATE.md")

	if err := Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Render() != doc.Render() {
		t.Error("document changed across write/load")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.md"))
	if !errors.Is(err, errors.ErrRunNotFound) {
		t.Errorf("got %v, want ErrRunNotFound", err)
	}
}
