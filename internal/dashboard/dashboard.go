package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"n8napp/internal/logging"
	"n8napp/internal/n8n"
	"n8napp/internal/session"
)

type (
	// API is the slice of the n8n client the dashboard drives
	API interface {
		ListWorkflows(ctx context.Context) ([]n8n.Workflow, error)
		ListExecutions(ctx context.Context, workflowID string, limit int) ([]n8n.Execution, error)
		SetWorkflowActive(ctx context.Context, id string, active bool) error
		RunWorkflow(ctx context.Context, id string) error
	}

	// Sessions is the credential store the dashboard connects through
	Sessions interface {
		Save(ctx context.Context, c session.Credential) error
		Load(ctx context.Context) (session.Credential, bool, error)
		Clear(ctx context.Context) error
		State() session.State
	}

	Tab string

	// View is everything a presentation layer needs to render one frame
	View struct {
		Configured     bool            `json:"configured"`
		Tab            Tab             `json:"tab"`
		Workflows      []n8n.Workflow  `json:"workflows"`
		Executions     []n8n.Execution `json:"executions"`
		Selected       *n8n.Workflow   `json:"selected,omitempty"`
		ShowExecutions bool            `json:"showExecutions"`
		Loading        bool            `json:"loading"`
		Error          string          `json:"error,omitempty"`
		Toast          string          `json:"toast,omitempty"`
	}

	Controller struct {
		sessions Sessions
		api      API
		log      *zap.Logger

		mu   sync.Mutex
		view View
	}
)

const (
	TabWorkflows  Tab = "workflows"
	TabExecutions Tab = "executions"
)

const msgFillAllFields = "fill in all fields"

var (
	ErrUnknownWorkflow = errors.New("workflow not loaded")
	ErrUnknownTab      = errors.New("unknown tab")
)

func New(sessions Sessions, api API, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		sessions: sessions,
		api:      api,
		log:      log,
		view:     View{Tab: TabWorkflows},
	}
}

// Start restores a saved session and, when there is one, loads workflows.
func (c *Controller) Start(ctx context.Context) error {
	_, ok, err := c.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return c.LoadWorkflows(ctx)
}

func (c *Controller) Connect(ctx context.Context, cred session.Credential) error {
	if err := c.sessions.Save(ctx, cred); err != nil {
		var ve *session.ValidationError
		if errors.As(err, &ve) {
			c.update(func(v *View) { v.Error = msgFillAllFields })
		} else {
			c.update(func(v *View) { v.Error = err.Error() })
		}
		return err
	}
	c.update(func(v *View) { v.Error = "" })
	c.log.Info("connected")
	return c.LoadWorkflows(ctx)
}

func (c *Controller) Disconnect(ctx context.Context) error {
	if err := c.sessions.Clear(ctx); err != nil {
		return err
	}
	c.update(func(v *View) { *v = View{Tab: TabWorkflows} })
	c.log.Info("disconnected")
	return nil
}

func (c *Controller) LoadWorkflows(ctx context.Context) error {
	c.update(func(v *View) {
		v.Loading = true
		v.Error = ""
	})
	wfs, err := c.api.ListWorkflows(ctx)
	c.update(func(v *View) {
		v.Loading = false
		if err != nil {
			v.Error = fmt.Sprintf("failed to load workflows: %v", err)
			return
		}
		v.Workflows = wfs
	})
	if err != nil {
		c.log.Warn("load workflows", zap.Error(err))
	}
	return err
}

// LoadExecutions lists one workflow's executions, or the most recent ones
// across all workflows when workflowID is empty.
func (c *Controller) LoadExecutions(ctx context.Context, workflowID string) error {
	limit := n8n.DefaultRecentExecutionsLimit
	if workflowID != "" {
		limit = n8n.DefaultWorkflowExecutionsLimit
	}
	c.update(func(v *View) {
		v.Loading = true
		v.Error = ""
	})
	execs, err := c.api.ListExecutions(ctx, workflowID, limit)
	c.update(func(v *View) {
		v.Loading = false
		if err != nil {
			v.Error = fmt.Sprintf("failed to load executions: %v", err)
			return
		}
		v.Executions = execs
	})
	if err != nil {
		c.log.Warn("load executions", logging.Workflow(workflowID), zap.Error(err))
	}
	return err
}

// ToggleWorkflow flips a loaded workflow's active flag.
func (c *Controller) ToggleWorkflow(ctx context.Context, id string) error {
	wf, ok := c.workflow(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, id)
	}
	return c.SetActive(ctx, id, !wf.Active)
}

// SetActive changes a workflow's active flag on the server and mirrors it in
// the view once the server accepted it.
func (c *Controller) SetActive(ctx context.Context, id string, active bool) error {
	c.update(func(v *View) { v.Toast = "" })
	if err := c.api.SetWorkflowActive(ctx, id, active); err != nil {
		c.update(func(v *View) { v.Error = fmt.Sprintf("failed to toggle: %v", err) })
		c.log.Warn("set active", logging.Workflow(id), zap.Error(err))
		return err
	}

	name := id
	c.update(func(v *View) {
		for i := range v.Workflows {
			if v.Workflows[i].ID == id {
				v.Workflows[i].Active = active
				name = v.Workflows[i].Name
			}
		}
		state := "deactivated"
		if active {
			state = "activated"
		}
		v.Toast = fmt.Sprintf("%s %s", name, state)
	})
	return nil
}

// RunWorkflow triggers a manual run and refreshes the workflow list. The
// run's outcome shows up later in the executions.
func (c *Controller) RunWorkflow(ctx context.Context, id string) error {
	name := id
	if wf, ok := c.workflow(id); ok {
		name = wf.Name
	}
	c.update(func(v *View) {
		v.Loading = true
		v.Toast = ""
	})
	if err := c.api.RunWorkflow(ctx, id); err != nil {
		c.update(func(v *View) {
			v.Loading = false
			v.Error = fmt.Sprintf("failed to run: %v", err)
		})
		c.log.Warn("run workflow", logging.Workflow(id), zap.Error(err))
		return err
	}
	c.update(func(v *View) { v.Toast = name + " executed" })
	c.log.Info("workflow triggered", logging.Workflow(id))
	return c.LoadWorkflows(ctx)
}

func (c *Controller) ViewWorkflowExecutions(ctx context.Context, id string) error {
	wf, ok := c.workflow(id)
	if !ok {
		wf = n8n.Workflow{ID: id, Name: id}
	}
	c.update(func(v *View) {
		v.Selected = &wf
		v.ShowExecutions = true
	})
	return c.LoadExecutions(ctx, id)
}

func (c *Controller) CloseWorkflowExecutions() {
	c.update(func(v *View) {
		v.Selected = nil
		v.ShowExecutions = false
	})
}

// DismissToast clears the last confirmation once it has been shown.
func (c *Controller) DismissToast() {
	c.update(func(v *View) { v.Toast = "" })
}

// SwitchTab shows a tab and reloads its list.
func (c *Controller) SwitchTab(ctx context.Context, tab Tab) error {
	switch tab {
	case TabWorkflows:
		c.update(func(v *View) { v.Tab = tab })
		return c.LoadWorkflows(ctx)
	case TabExecutions:
		c.update(func(v *View) { v.Tab = tab })
		return c.LoadExecutions(ctx, "")
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
}

// Configured reports whether the session holds a credential.
func (c *Controller) Configured() bool {
	return c.sessions.State() == session.Configured
}

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() View {
	configured := c.Configured()
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.view
	v.Configured = configured
	v.Workflows = append([]n8n.Workflow(nil), c.view.Workflows...)
	v.Executions = append([]n8n.Execution(nil), c.view.Executions...)
	if c.view.Selected != nil {
		sel := *c.view.Selected
		v.Selected = &sel
	}
	return v
}

func (c *Controller) workflow(id string) (n8n.Workflow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, wf := range c.view.Workflows {
		if wf.ID == id {
			return wf, true
		}
	}
	return n8n.Workflow{}, false
}

func (c *Controller) update(fn func(*View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.view)
}
