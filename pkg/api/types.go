package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dd0wney/nodewire/pkg/protocol"
	"github.com/dd0wney/nodewire/pkg/workspace"
)

// Health is the GET /health response.
type Health struct {
	Status          string `json:"status"`
	Service         string `json:"service"`
	HermesConnected bool   `json:"hermes_connected"`
}

// OK reports whether the backend considers itself healthy.
func (h Health) OK() bool {
	return h.Status == "healthy" || h.Status == "ok"
}

// runRequest is the POST /graphs/run body.
type runRequest struct {
	Graph protocol.GraphPayload `json:"graph"`
}

// RunResult is the synchronous POST /graphs/run response.
type RunResult struct {
	ExecutionID string                     `json:"execution_id"`
	Status      string                     `json:"status"` // success | failed | in_progress
	NodeResults map[string]json.RawMessage `json:"node_results,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// Succeeded reports whether the backend ran the graph to completion.
func (r RunResult) Succeeded() bool {
	return r.Status == "success"
}

// saveRequest is the POST /nexus/save body.
type saveRequest struct {
	Name string         `json:"name"`
	Data workspace.Data `json:"data"`
}

// listResponse is the GET /nexus/list body.
type listResponse struct {
	Workspaces []string `json:"workspaces"`
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// NotFound reports whether the response was a 404 or the backend's
// bad-request form of "no such workspace".
func (e *StatusError) NotFound() bool {
	return e.Code == http.StatusNotFound || e.Code == http.StatusBadRequest
}
