package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtian8/physics-agent/internal/contextpack"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/worker"
)

// Bounds on the work excerpt handed to a verifier.
const (
	maxPayloadLines = 120
	maxPayloadChars = 6000
)

// truncatePayload caps verifier input at a fixed number of lines and bytes so
// oversized artifacts never dominate the verification request.
func truncatePayload(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > maxPayloadLines {
		text = strings.Join(lines[:maxPayloadLines], "\n") + "\n... (truncated)"
	}
	if len(text) > maxPayloadChars {
		text = text[:maxPayloadChars] + "\n... (truncated)"
	}
	return text
}

// implicitFail is the verdict recorded when the verifier itself cannot be
// reached or errors out. Verification failure never silently passes work.
func implicitFail(summary string) *worker.VerifierResult {
	return &worker.VerifierResult{Verdict: worker.VerdictFail, Summary: summary}
}

// followupSuggestions picks the rework items for a withheld verdict: the
// verifier's explicit follow-ups, then its issues, then a single generated
// fallback so the stage always reopens with something concrete.
func followupSuggestions(vres *worker.VerifierResult, fallback string) []string {
	if len(vres.FollowUps) > 0 {
		return vres.FollowUps
	}
	if len(vres.Issues) > 0 {
		return vres.Issues
	}
	return []string{fallback}
}

// verifyTask runs the stage's verifier against one task's produced work. Only
// the artifacts the task declared are shown, each capped individually so one
// oversized file cannot crowd out the rest.
func (e *Engine) verifyTask(ctx context.Context, runID string, stage *taskgraph.Stage, task *taskgraph.Task, res *worker.TaskResult, pack string) *worker.VerifierResult {
	v, err := e.registry.Verifier(stage.Verifier.Worker)
	if err != nil {
		return implicitFail(fmt.Sprintf("task verifier errored: %v", err))
	}

	var payload strings.Builder
	payload.WriteString(res.Summary)
	for _, name := range sortedArtifactNames(res.Artifacts) {
		if !task.DeclaresArtifact(name) {
			continue
		}
		payload.WriteString("\n\n### " + name + "\n")
		payload.WriteString(truncatePayload(res.Artifacts[name]))
	}

	vres, err := v.Verify(ctx, worker.VerifyRequest{
		RunID:       runID,
		TaskID:      task.ID,
		StageID:     stage.ID,
		StageName:   stage.Name,
		Criteria:    task.AcceptanceCriteria,
		Output:      payload.String(),
		ContextPack: pack,
	})
	if err != nil {
		return implicitFail(fmt.Sprintf("task verifier errored: %v", err))
	}
	return vres
}

// runStageVerifier judges a completed stage against its acceptance criteria.
// A verdict other than PASS synthesizes follow-up tasks so the stage reopens
// with concrete work instead of wedging.
func (e *Engine) runStageVerifier(ctx context.Context, runID string, doc *statedoc.Document, g *taskgraph.Graph, stage *taskgraph.Stage) (worker.Verdict, error) {
	log := e.log.WithRun(runID).WithStage(stage.ID)

	pack, err := contextpack.Build(e.layout, runID, doc, stage)
	if err != nil {
		return "", err
	}
	if _, err := contextpack.WritePack(e.layout, runID, pack); err != nil {
		return "", err
	}
	ledger, err := doc.Section(statedoc.SectionResults)
	if err != nil {
		return "", err
	}

	vres := e.callVerifier(ctx, stage.Verifier.Worker, worker.VerifyRequest{
		RunID:       runID,
		StageID:     stage.ID,
		StageName:   stage.Name,
		Criteria:    stage.Verifier.Criteria,
		Output:      truncatePayload(ledger),
		ContextPack: pack,
	}, fmt.Sprintf("stage %d verifier errored", stage.ID))

	patchName := fmt.Sprintf("stage_%d_verifier_prompt_patch.md", stage.ID)
	if err := e.writePromptPatch(runID, patchName, vres.PromptPatch); err != nil {
		return "", err
	}
	if err := doc.UpdateVerifierStatus(stage.ID, vres.Verdict.String(), vres.Issues, ""); err != nil {
		return "", err
	}
	if err := doc.AppendHistory(fmt.Sprintf("stage %d verifier: %s", stage.ID, vres.Verdict)); err != nil {
		return "", err
	}
	log.Info("stage verifier finished", "verdict", vres.Verdict.String())

	if !vres.Verdict.Passed() {
		fallback := fmt.Sprintf("Resolve verifier verdict %s for stage %d: %s", vres.Verdict, stage.ID, vres.Summary)
		if err := e.addFollowups(doc, stage, followupSuggestions(vres, fallback)); err != nil {
			return "", err
		}
	}
	return vres.Verdict, nil
}

// runFinalVerifier judges the whole run's answer once every stage is settled
// and records the verdict in the verifier status section.
func (e *Engine) runFinalVerifier(ctx context.Context, runID string) (worker.Verdict, error) {
	doc, err := statedoc.Load(e.layout.StateDocPath(runID))
	if err != nil {
		return "", err
	}
	g, err := doc.TaskGraph()
	if err != nil {
		return "", err
	}
	if len(g.Stages) == 0 {
		return "", nil
	}
	last := g.Stages[len(g.Stages)-1]

	answer, err := doc.Section(statedoc.SectionBestAnswer)
	if err != nil {
		return "", err
	}
	payload := answer
	report, err := os.ReadFile(filepath.Join(e.layout.RunDir(runID), finalReportArtifact))
	if err == nil {
		payload = answer + "\n\n" + string(report)
	}

	vres := e.callVerifier(ctx, last.Verifier.Worker, worker.VerifyRequest{
		RunID:    runID,
		Criteria: last.Verifier.Criteria,
		Output:   truncatePayload(payload),
	}, "final verifier errored")

	if err := e.writePromptPatch(runID, "final_verifier_prompt_patch.md", vres.PromptPatch); err != nil {
		return "", err
	}
	if err := doc.UpdateFinalVerifier(vres.Verdict.String()); err != nil {
		return "", err
	}
	if err := doc.AppendHistory(fmt.Sprintf("final verifier: %s", vres.Verdict)); err != nil {
		return "", err
	}
	if err := e.persist(runID, doc, g); err != nil {
		return "", err
	}
	e.log.WithRun(runID).Info("final verifier finished", "verdict", vres.Verdict.String())
	return vres.Verdict, nil
}

// callVerifier resolves and invokes a verifier, downgrading any failure to an
// implicit FAIL verdict tagged with errContext.
func (e *Engine) callVerifier(ctx context.Context, workerID string, req worker.VerifyRequest, errContext string) *worker.VerifierResult {
	v, err := e.registry.Verifier(workerID)
	if err != nil {
		return implicitFail(fmt.Sprintf("%s: %v", errContext, err))
	}
	vres, err := v.Verify(ctx, req)
	if err != nil {
		return implicitFail(fmt.Sprintf("%s: %v", errContext, err))
	}
	return vres
}
