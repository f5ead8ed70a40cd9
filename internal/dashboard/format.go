package dashboard

import (
	"math"
	"time"

	"n8napp/internal/n8n"
)

const timeLayout = "02/01 15:04"

func StatusLabel(s n8n.ExecutionStatus) string {
	switch s {
	case n8n.StatusSuccess:
		return "Success"
	case n8n.StatusRunning:
		return "Running"
	case n8n.StatusWaiting:
		return "Waiting"
	case n8n.StatusError:
		return "Error"
	default:
		return string(s)
	}
}

// Failed reports whether a status should be shown as a failure. Unknown
// statuses count as failures.
func Failed(s n8n.ExecutionStatus) bool {
	switch s {
	case n8n.StatusSuccess, n8n.StatusRunning, n8n.StatusWaiting:
		return false
	default:
		return true
	}
}

// Duration returns the whole seconds an execution took, rounded, and false
// while it has not stopped.
func Duration(e n8n.Execution) (int64, bool) {
	if e.StoppedAt == nil {
		return 0, false
	}
	secs := e.StoppedAt.Sub(e.StartedAt).Seconds()
	return int64(math.Round(secs)), true
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func DisplayName(e n8n.Execution) string {
	if e.WorkflowData != nil && e.WorkflowData.Name != "" {
		return e.WorkflowData.Name
	}
	return "Workflow #" + e.WorkflowID
}

// Summary counts loaded workflows and how many of them are active.
func Summary(wfs []n8n.Workflow) (total, active int) {
	for _, wf := range wfs {
		if wf.Active {
			active++
		}
	}
	return len(wfs), active
}
