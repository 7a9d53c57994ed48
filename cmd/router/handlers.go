package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/novaroute/router/orchestrator"
	"github.com/novaroute/router/types"
)

// runWorkflowRequest is the body of POST /workflows/run: executes a
// persisted or built-in WorkflowSpec (spec.md §4.9) directly, distinct
// from the per-kind legacy routes that redirect into the Entry
// Orchestrator. Used for operator-defined multi-step DAGs that don't map
// to any single task type.
type runWorkflowRequest struct {
	WorkflowID  string                   `json:"workflow_id"`
	Variables   map[string]string        `json:"variables,omitempty"`
	Constraints types.RequestConstraints `json:"constraints,omitempty"`
}

// handleRunWorkflow loads a WorkflowSpec by id from the catalog and
// executes it via the Workflow Engine, returning its RouterResponse
// directly (synchronous — DAG workflows are expected to complete within a
// single request, unlike the polled Entry Orchestrator sub-workflows).
func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	var req runWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.ErrValidationError, "malformed request body").WithHTTPStatus(400))
		return
	}
	spec, err := s.registry.LoadWorkflow(req.WorkflowID)
	if err != nil {
		writeError(w, types.NewError(types.ErrInstanceNotFound, "no workflow for id "+req.WorkflowID).WithHTTPStatus(404))
		return
	}
	resp := s.engine.Execute(r.Context(), *spec, req.Variables, req.Constraints)
	writeJSON(w, http.StatusOK, resp)
}

// executeRequest is the body of POST /execute: spec.md §6's uniform
// envelope. ID is optional; when empty, TaskID doubles as the dedup key.
type executeRequest struct {
	ID     string                           `json:"id,omitempty"`
	Params orchestrator.PrimeWorkflowParams `json:"params"`
}

type executeResponse struct {
	Success     bool         `json:"success"`
	ExecutionID string       `json:"execution_id,omitempty"`
	TaskType    string       `json:"task_type,omitempty"`
	Status      string       `json:"status"`
	Error       *types.Error `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExecute implements POST /execute: submit a task for orchestration,
// returning 202-shaped acceptance or a 409 on duplicate submission.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.ErrValidationError, "malformed request body").WithHTTPStatus(400))
		return
	}
	id := req.ID
	if id == "" {
		id = req.Params.TaskID
	}

	taskType, err := s.orch.Submit(r.Context(), id, req.Params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, executeResponse{
		Success: true, ExecutionID: id, TaskType: string(taskType), Status: "accepted",
	})
}

// handleStatus implements GET /status/{id} and GET /workflows/{kind}/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	exec, ok := s.orch.Status(id)
	if !ok {
		writeError(w, types.NewError(types.ErrInstanceNotFound, "no execution for id "+id).WithHTTPStatus(404))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"execution_id": exec.ID,
		"task_id":      exec.TaskID,
		"task_type":    exec.TaskType,
		"status":       exec.Status,
		"output":       exec.Output,
		"error":        exec.Error,
		"runner_used":  exec.RunnerUsed,
	})
}

// handleStatusStream implements GET /status/{id}/stream: an enrichment
// beyond spec.md's polling-only contract (additive, polling semantics
// are unchanged). Pushes the execution snapshot over a websocket every
// tick until the execution reaches a terminal status or the client
// disconnects.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		exec, ok := s.orch.Status(id)
		if !ok {
			_ = conn.Close(websocket.StatusNormalClosure, "no such execution")
			return
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := wsjson.Write(writeCtx, conn, map[string]any{
			"execution_id": exec.ID,
			"status":       exec.Status,
			"output":       exec.Output,
			"error":        exec.Error,
		})
		cancel()
		if err != nil {
			return
		}

		if exec.Status.Terminal() {
			_ = conn.Close(websocket.StatusNormalClosure, "execution finished")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// legacyWorkflow adapts a pre-Entry-Orchestrator workflow endpoint onto
// Submit, so existing callers of the per-kind routes keep working while
// being redirected into the unified PrimeWorkflow path, per spec.md §9's
// note that legacy per-workflow routes still exist as thin compatibility
// shims.
func (s *Server) legacyWorkflow(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params orchestrator.PrimeWorkflowParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, types.NewError(types.ErrValidationError, "malformed request body").WithHTTPStatus(400))
			return
		}
		if params.Hints.Workflow == "" {
			params.Hints.Workflow = kind
		}

		taskType, err := s.orch.Submit(r.Context(), params.TaskID, params)
		if err != nil {
			writeError(w, err)
			return
		}

		s.logger.Info("legacy workflow route redirected into orchestrator",
			zap.String("kind", kind), zap.String("task_id", params.TaskID))

		writeJSON(w, http.StatusAccepted, map[string]any{
			"success":      true,
			"execution_id": params.TaskID,
			"task_type":    taskType,
			"status":       "accepted",
			"redirected":   true,
		})
	}
}

// handleShippingResearchRefusal implements spec.md §9's explicit refusal:
// product-shipping-research is reachable only through POST /execute's task
// classification, never as a direct legacy route, because it requires the
// Product field the legacy envelope has no place for.
func (s *Server) handleShippingResearchRefusal(w http.ResponseWriter, r *http.Request) {
	writeError(w, types.NewError(types.ErrValidationError,
		"product-shipping-research has no legacy route; submit via POST /execute").WithHTTPStatus(403))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	if terr, ok := err.(*types.Error); ok {
		status := terr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, executeResponse{Success: false, Status: "error", Error: terr})
		return
	}
	writeJSON(w, http.StatusInternalServerError, executeResponse{
		Success: false, Status: "error",
		Error: types.NewError(types.ErrValidationError, err.Error()).WithHTTPStatus(500),
	})
}
