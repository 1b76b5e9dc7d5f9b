// Package shapediver is a thin client for the ShapeDiver geometry backend:
// it opens computation sessions and submits export computations. The
// backend's result shapes are not uniform across service versions, so
// compute results are surfaced as raw maps and interpreted downstream.
package shapediver

// ParameterInfo describes one model input parameter of a session.
type ParameterInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ExportInfo describes one export definition of a session.
type ExportInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Session is a live computation session. It exists only for the duration of
// one export resolution and is never persisted.
type Session struct {
	ID         string                   `json:"sessionId"`
	Endpoint   string                   `json:"-"`
	Parameters map[string]ParameterInfo `json:"parameters"`
	Exports    map[string]ExportInfo    `json:"exports"`
}

// ComputeRequest is the body submitted to the export computation endpoint.
type ComputeRequest struct {
	Parameters map[string]any `json:"parameters"`
	Exports    []string       `json:"exports"`
}

// ComputeResponse wraps the polymorphic per-export results.
type ComputeResponse struct {
	Exports map[string]map[string]any `json:"exports"`
}
