package n8n

import "time"

type Workflow struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Active    bool      `json:"active" yaml:"active"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusRunning ExecutionStatus = "running"
	StatusWaiting ExecutionStatus = "waiting"
	StatusError   ExecutionStatus = "error"
)

type Execution struct {
	ID           string          `json:"id" yaml:"id"`
	WorkflowID   string          `json:"workflowId" yaml:"workflowId"`
	Status       ExecutionStatus `json:"status" yaml:"status"`
	StartedAt    time.Time       `json:"startedAt" yaml:"startedAt"`
	StoppedAt    *time.Time      `json:"stoppedAt" yaml:"stoppedAt"`
	WorkflowData *WorkflowData   `json:"workflowData,omitempty" yaml:"workflowData,omitempty"`
}

type WorkflowData struct {
	Name string `json:"name" yaml:"name"`
}

const (
	// DefaultWorkflowExecutionsLimit applies when listing one workflow's runs.
	DefaultWorkflowExecutionsLimit = 20
	// DefaultRecentExecutionsLimit applies when listing across all workflows.
	DefaultRecentExecutionsLimit = 30
)
