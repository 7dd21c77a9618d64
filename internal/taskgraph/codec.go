package taskgraph

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mtian8/physics-agent/internal/errors"
)

// Marker is the first line of every serialized graph. It identifies the
// payload inside the state document's Task Graph section.
const Marker = "# TASK_GRAPH_V2"

// MarshalGraph serializes the graph to YAML prefixed with the marker line.
func MarshalGraph(g *Graph) (string, error) {
	data, err := yaml.Marshal(g)
	if err != nil {
		return "", errors.NewValidationError("cannot serialize task graph").WithCause(err)
	}
	return Marker + "\n" + strings.TrimSpace(string(data)), nil
}

// UnmarshalGraph parses a serialized graph. The marker line, if present, is
// skipped by the YAML parser as a comment.
func UnmarshalGraph(text string) (*Graph, error) {
	var g Graph
	if err := yaml.Unmarshal([]byte(text), &g); err != nil {
		return nil, errors.NewValidationError("task graph YAML must be a mapping").WithCause(err)
	}
	if g.Stages == nil && g.Version == 0 {
		return nil, errors.NewValidationError("task graph YAML must be a mapping")
	}
	return &g, nil
}
