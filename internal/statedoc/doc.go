// Package statedoc implements the durable state document that records a run:
// a markdown file made of nine fixed, independently patchable sections. The
// document is the crash-recoverable source of truth; every scheduling cycle
// reloads it, mutates sections through this package, and writes it back.
//
// The in-memory model is an ordered list of named sections. Rendering to and
// parsing from the on-disk text are serialization concerns kept separate from
// section patching, so patch correctness does not depend on string matching.
package statedoc

import (
	"os"
	"strings"
	"time"

	"github.com/mtian8/physics-agent/internal/errors"
)

// Preamble is the first line of every state document.
const Preamble = "# Research State Doc"

// Section titles, in document order.
const (
	SectionHeader     = "Header"
	SectionProblem    = "Problem spec"
	SectionBestAnswer = "Current best answer"
	SectionTaskGraph  = "Task Graph (machine-readable)"
	SectionTaskBoard  = "Task Board (human-readable)"
	SectionResults    = "Results ledger"
	SectionEvidence   = "Evidence / citations ledger"
	SectionVerifier   = "Verifier status"
	SectionHistory    = "History log"
)

// SectionTitles returns the nine section titles in their fixed order.
func SectionTitles() []string {
	return []string{
		SectionHeader,
		SectionProblem,
		SectionBestAnswer,
		SectionTaskGraph,
		SectionTaskBoard,
		SectionResults,
		SectionEvidence,
		SectionVerifier,
		SectionHistory,
	}
}

type section struct {
	title string
	body  string
}

// Document is the parsed state document: an ordered list of named sections.
// Section bodies are opaque to each other; replacing one never rewrites
// another.
type Document struct {
	preamble string
	sections []section
}

// nowFunc supplies timestamps; tests substitute a fixed clock.
var nowFunc = func() time.Time { return time.Now().UTC() }

func nowISO() string {
	return nowFunc().Format(time.RFC3339)
}

// Parse splits document text into sections. Unknown leading text becomes the
// preamble; each recognized "## <title>" heading starts a section whose body
// runs to the next recognized heading or end of input.
func Parse(text string) *Document {
	known := make(map[string]bool)
	for _, title := range SectionTitles() {
		known[title] = true
	}

	doc := &Document{}
	var current *section
	var buf []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(buf, "\n"))
		if current == nil {
			doc.preamble = body
		} else {
			current.body = body
			doc.sections = append(doc.sections, *current)
		}
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if title, ok := strings.CutPrefix(line, "## "); ok && known[strings.TrimSpace(title)] {
			flush()
			current = &section{title: strings.TrimSpace(title)}
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return doc
}

// Render serializes the document back to its textual form.
func (d *Document) Render() string {
	var sb strings.Builder
	sb.WriteString(d.preamble)
	for _, s := range d.sections {
		sb.WriteString("\n\n## ")
		sb.WriteString(s.title)
		sb.WriteString("\n")
		sb.WriteString(s.body)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Section returns the body of the named section.
func (d *Document) Section(title string) (string, error) {
	for i := range d.sections {
		if d.sections[i].title == title {
			return d.sections[i].body, nil
		}
	}
	return "", errors.NewSectionNotFoundError(title)
}

// ReplaceSection swaps one section's body, leaving every other section
// untouched. This is the central patch primitive.
func (d *Document) ReplaceSection(title, body string) error {
	for i := range d.sections {
		if d.sections[i].title == title {
			d.sections[i].body = strings.TrimSpace(body)
			return nil
		}
	}
	return errors.NewSectionNotFoundError(title)
}

// Load reads and parses a state document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("run", path).WithCause(err)
		}
		return nil, errors.NewPersistenceError("read", path, err)
	}
	return Parse(string(data)), nil
}

// Write renders and persists a state document.
func Write(path string, doc *Document) error {
	if err := os.WriteFile(path, []byte(doc.Render()), 0o644); err != nil {
		return errors.NewPersistenceError("write", path, err)
	}
	return nil
}
