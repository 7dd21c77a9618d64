package taskgraph

// DefaultGraph returns the three-stage research graph a new run starts from:
// literature gathering, derivation with computational checks, and synthesis.
func DefaultGraph() *Graph {
	return &Graph{
		Version: Version,
		Stages: []*Stage{
			{
				ID:   1,
				Name: "Literature + definitions",
				Verifier: VerifierSpec{
					Worker:   "verifier",
					Criteria: []string{"citations_present", "notation_defined"},
				},
				Tasks: []*Task{
					{
						ID:            "1.1",
						Title:         "Search + rank candidate papers",
						Worker:        "literature_scout",
						Status:        StatusTodo,
						DependsOn:     []string{},
						ParallelGroup: "search",
						AcceptanceCriteria: []string{
							"paper_candidates_written",
							"citations_present",
						},
						Inputs:  map[string]any{"query_hints": []any{}},
						Outputs: []Output{{Artifacts: []string{"paper_candidates.json"}}},
					},
					{
						ID:            "1.2",
						Title:         "Extract definitions + assumptions from paper pool",
						Worker:        "paper_reader",
						Status:        StatusTodo,
						DependsOn:     []string{"1.1"},
						ParallelGroup: "extraction",
						AcceptanceCriteria: []string{
							"notation_defined",
							"assumptions_listed",
							"citations_present",
						},
						Inputs: map[string]any{"focus": "definitions + assumptions"},
						Outputs: []Output{{Artifacts: []string{
							"equation_bank.md",
							"assumptions.md",
							"extractions.json",
						}}},
					},
				},
			},
			{
				ID:   2,
				Name: "Derivation + computational checks",
				Verifier: VerifierSpec{
					Worker:   "verifier",
					Criteria: []string{"dimensions_ok", "limit_cases_ok"},
				},
				Tasks: []*Task{
					{
						ID:            "2.1",
						Title:         "Main derivation + executable checks",
						Worker:        "derivation_coder",
						Status:        StatusTodo,
						DependsOn:     []string{},
						ParallelGroup: "derivation",
						AcceptanceCriteria: []string{
							"derivation_written",
							"checks_runnable",
							"dimensions_ok",
							"limit_cases_ok",
						},
						Inputs:  map[string]any{"target": "main derivation"},
						Outputs: []Output{{Artifacts: []string{"derivation.md", "checks.py"}}},
					},
				},
			},
			{
				ID:   3,
				Name: "Synthesis",
				Verifier: VerifierSpec{
					Worker:   "verifier",
					Criteria: []string{"final_report_complete"},
				},
				Tasks: []*Task{
					{
						ID:                 "3.1",
						Title:              "Assemble final report",
						Worker:             "orchestrator",
						Status:             StatusTodo,
						DependsOn:          []string{},
						ParallelGroup:      "synthesis",
						AcceptanceCriteria: []string{"final_report_complete"},
						Inputs: map[string]any{"include": []any{
							"equation_bank",
							"derivation",
							"verifier_summary",
						}},
						Outputs: []Output{{Artifacts: []string{"final_report.md"}}},
					},
				},
			},
		},
	}
}
