package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"n8napp/internal/dashboard"
	"n8napp/internal/session"
)

const (
	ToolConnect        = "n8n.connect"
	ToolDisconnect     = "n8n.disconnect"
	ToolStatus         = "n8n.status"
	ToolListWorkflows  = "n8n.workflows.list"
	ToolSetActive      = "n8n.workflows.setActive"
	ToolRunWorkflow    = "n8n.workflows.run"
	ToolListExecutions = "n8n.executions.list"
)

type paramsError struct{ msg string }

func (e *paramsError) Error() string { return e.msg }

func toolset() []Tool {
	return []Tool{
		{
			Name:        ToolConnect,
			Description: "Save the n8n server URL and API key for this session and load workflows.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"url":{"type":"string"},"apiKey":{"type":"string"}},"required":["url","apiKey"]}`),
		},
		{
			Name:        ToolDisconnect,
			Description: "Forget the saved credential.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
		},
		{
			Name:        ToolStatus,
			Description: "Return the current dashboard view.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
		},
		{
			Name:        ToolListWorkflows,
			Description: "Reload and list workflows.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`),
		},
		{
			Name:        ToolSetActive,
			Description: "Activate or deactivate a workflow.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"},"active":{"type":"boolean"}},"required":["id","active"]}`),
		},
		{
			Name:        ToolRunWorkflow,
			Description: "Trigger a manual run; poll n8n.executions.list for the outcome.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
		},
		{
			Name:        ToolListExecutions,
			Description: "List recent executions, optionally for one workflow.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"workflowId":{"type":"string"}}}`),
		},
	}
}

func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolConnect:
		var in struct {
			URL    string `json:"url"`
			APIKey string `json:"apiKey"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if err := s.dash.Connect(ctx, session.Credential{BaseURL: in.URL, APIKey: in.APIKey}); err != nil {
			return nil, err
		}
		return s.dash.Snapshot(), nil

	case ToolDisconnect:
		if err := s.dash.Disconnect(ctx); err != nil {
			return nil, err
		}
		return s.dash.Snapshot(), nil

	case ToolStatus:
		return s.dash.Snapshot(), nil

	case ToolListWorkflows:
		if err := s.requireSession(); err != nil {
			return nil, err
		}
		if err := s.dash.LoadWorkflows(ctx); err != nil {
			return nil, err
		}
		v := s.dash.Snapshot()
		total, active := dashboard.Summary(v.Workflows)
		return map[string]any{"workflows": v.Workflows, "total": total, "active": active}, nil

	case ToolSetActive:
		var in struct {
			ID     string `json:"id"`
			Active *bool  `json:"active"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.ID == "" || in.Active == nil {
			return nil, &paramsError{msg: "missing id or active"}
		}
		if err := s.requireSession(); err != nil {
			return nil, err
		}
		if err := s.dash.SetActive(ctx, in.ID, *in.Active); err != nil {
			return nil, err
		}
		return map[string]any{"id": in.ID, "active": *in.Active, "toast": s.dash.Snapshot().Toast}, nil

	case ToolRunWorkflow:
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.ID == "" {
			return nil, &paramsError{msg: "missing id"}
		}
		if err := s.requireSession(); err != nil {
			return nil, err
		}
		if err := s.dash.RunWorkflow(ctx, in.ID); err != nil {
			return nil, err
		}
		return map[string]any{"id": in.ID, "toast": s.dash.Snapshot().Toast}, nil

	case ToolListExecutions:
		var in struct {
			WorkflowID string `json:"workflowId"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if err := s.requireSession(); err != nil {
			return nil, err
		}
		if err := s.dash.LoadExecutions(ctx, in.WorkflowID); err != nil {
			return nil, err
		}
		return map[string]any{"executions": s.dash.Snapshot().Executions}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) requireSession() error {
	if !s.dash.Configured() {
		return fmt.Errorf("not connected: call %s first", ToolConnect)
	}
	return nil
}

func decodeArgs(args json.RawMessage, out any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, out); err != nil {
		return &paramsError{msg: "invalid arguments: " + err.Error()}
	}
	return nil
}
