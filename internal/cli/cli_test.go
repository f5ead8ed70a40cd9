package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n8napp/internal/cli"
	"n8napp/internal/config"
	"n8napp/internal/dashboard"
	"n8napp/internal/mcp"
	"n8napp/internal/n8n"
	"n8napp/internal/session"
)

type fakeN8N struct {
	mu      sync.Mutex
	active  map[string]bool
	runs    []string
	queries []string
}

func (f *fakeN8N) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-N8N-API-KEY") != "good" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/workflows":
		b, _ := json.Marshal(map[string]any{"data": []map[string]any{
			{"id": "1", "name": "Alpha", "active": f.active["1"], "updatedAt": "2024-01-01T00:00:00Z"},
			{"id": "2", "name": "Beta", "active": f.active["2"], "updatedAt": "2024-01-02T00:00:00Z"},
		}})
		_, _ = w.Write(b)
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/api/v1/workflows/"):
		var body struct {
			Active bool `json:"active"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.active[strings.TrimPrefix(r.URL.Path, "/api/v1/workflows/")] = body.Active
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/run"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/workflows/"), "/run")
		f.runs = append(f.runs, id)
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/executions":
		f.queries = append(f.queries, r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"data":[{"id":"e1","workflowId":"1","status":"success","startedAt":"2024-01-01T00:00:00Z","stoppedAt":"2024-01-01T00:00:03Z"}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeN8N) isActive(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[id]
}

func (f *fakeN8N) runList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

func (f *fakeN8N) queryList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func newFake(t *testing.T) (*fakeN8N, string) {
	t.Helper()
	f := &fakeN8N{active: map[string]bool{"2": true}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

// isolate keeps the developer's environment out of the commands under test.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvURL, config.EnvAPIKey, config.EnvSession,
		config.EnvBackend, config.EnvDSN, config.EnvRedisAddr,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(config.EnvLogLevel, "error")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWorkflowsListTable(t *testing.T) {
	isolate(t)
	_, url := newFake(t)

	out, err := run(t, "", "workflows", "list", "--url", url+"/", "--api-key", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Beta")
	assert.Contains(t, out, "2 workflows, 1 active")
}

func TestWorkflowsListJSONFromEnv(t *testing.T) {
	isolate(t)
	_, url := newFake(t)
	t.Setenv(config.EnvURL, url)
	t.Setenv(config.EnvAPIKey, "good")

	out, err := run(t, "", "wf", "ls", "-o", "json")
	require.NoError(t, err)
	var list struct {
		Workflows []n8n.Workflow `json:"workflows"`
		Total     int            `json:"total"`
		Active    int            `json:"active"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 1, list.Active)
	assert.Equal(t, "Alpha", list.Workflows[0].Name)
}

func TestNotConnected(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "workflows", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	_, err = run(t, "", "connect", "--url", "https://host")
	require.Error(t, err)
	assert.Equal(t, "missing required: --url --api-key", err.Error())
}

func TestUnauthorized(t *testing.T) {
	isolate(t)
	_, url := newFake(t)

	_, err := run(t, "", "workflows", "list", "--url", url, "--api-key", "bad")
	var he *n8n.HTTPStatusError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, 401, he.Code)
	assert.Equal(t, "list workflows: error 401: Unauthorized", err.Error())
}

func TestConnectMemoryBackend(t *testing.T) {
	isolate(t)
	_, url := newFake(t)

	out, err := run(t, "", "connect", "--url", url, "--api-key", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "connected to "+url+" (2 workflows, 1 active)")
	assert.Contains(t, out, "memory backend")
}

func TestActivateToggleRun(t *testing.T) {
	isolate(t)
	f, url := newFake(t)
	creds := []string{"--url", url, "--api-key", "good"}

	out, err := run(t, "", append([]string{"workflows", "activate", "1"}, creds...)...)
	require.NoError(t, err)
	assert.Equal(t, "ok: Alpha activated\n", out)
	assert.True(t, f.isActive("1"))

	out, err = run(t, "", append([]string{"workflows", "toggle", "2"}, creds...)...)
	require.NoError(t, err)
	assert.Equal(t, "ok: Beta deactivated\n", out)
	assert.False(t, f.isActive("2"))

	_, err = run(t, "", append([]string{"workflows", "toggle", "9"}, creds...)...)
	assert.ErrorIs(t, err, dashboard.ErrUnknownWorkflow)

	out, err = run(t, "", append([]string{"workflows", "run", "1"}, creds...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: Alpha executed")
	assert.Contains(t, out, "executions list --workflow 1")
	assert.Equal(t, []string{"1"}, f.runList())
}

func TestExecutionsList(t *testing.T) {
	isolate(t)
	f, url := newFake(t)
	creds := []string{"--url", url, "--api-key", "good"}

	out, err := run(t, "", append([]string{"executions", "list"}, creds...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Workflow #1")
	assert.Contains(t, out, "Success")
	assert.Contains(t, out, "3s")

	out, err = run(t, "", append([]string{"ex", "ls", "--workflow", "1", "-o", "json"}, creds...)...)
	require.NoError(t, err)
	var execs []n8n.Execution
	require.NoError(t, json.Unmarshal([]byte(out), &execs))
	require.Len(t, execs, 1)
	assert.Equal(t, n8n.StatusSuccess, execs[0].Status)

	assert.Equal(t, []string{"limit=30", "limit=20&workflowId=1"}, f.queryList())
}

func TestSharedSessionAcrossInvocations(t *testing.T) {
	isolate(t)
	_, url := newFake(t)
	mr := miniredis.RunT(t)
	backend := []string{"--backend", "redis", "--redis", mr.Addr(), "--session", "s1"}

	out, err := run(t, "", append([]string{"connect", "--url", url, "--api-key", "good"}, backend...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "session: s1")

	out, err = run(t, "", append([]string{"workflows", "list"}, backend...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")

	out, err = run(t, "", append([]string{"status", "-o", "json"}, backend...)...)
	require.NoError(t, err)
	var st map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "configured", st["state"])
	assert.Equal(t, url, st["url"])
	assert.Equal(t, "****", st["apiKey"])

	_, err = run(t, "", append([]string{"disconnect"}, backend...)...)
	require.NoError(t, err)
	out, err = run(t, "", append([]string{"status"}, backend...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "unconfigured")

	out, err = run(t, "", "status", "--backend", "redis", "--redis", mr.Addr(), "--session", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "unconfigured")
}

func TestShell(t *testing.T) {
	isolate(t)
	f, url := newFake(t)

	script := strings.Join([]string{
		"workflows",
		"connect " + url,
		"connect " + url + " good",
		"toggle 1",
		"executions 1",
		"back",
		"run 2",
		"nope",
		"disconnect",
		"quit",
	}, "\n") + "\n"
	out, err := run(t, script, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "not connected; use: connect URL API_KEY")
	assert.Contains(t, out, "error: fill in all fields")
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "ok: Alpha activated")
	assert.Contains(t, out, "executions of Alpha")
	assert.Contains(t, out, "ok: Beta executed")
	assert.Contains(t, out, `error: unknown command "nope" (try help)`)
	assert.Contains(t, out, "disconnected")
	assert.Contains(t, out, "n8n (disconnected)> ")
	assert.Equal(t, []string{"2"}, f.runList())
	assert.Equal(t, []string{"limit=20&workflowId=1"}, f.queryList())
}

func TestShellRestoresSession(t *testing.T) {
	isolate(t)
	_, url := newFake(t)

	out, err := run(t, "status\n", "shell", "--url", url, "--api-key", "good")
	require.NoError(t, err)
	assert.Contains(t, out, "2 workflows, 1 active")
	assert.Contains(t, out, "configured (session default, backend memory)")
}

func TestMCPToolsAndCall(t *testing.T) {
	isolate(t)
	_, url := newFake(t)
	st := session.New(nil)
	dash := dashboard.New(st, n8n.NewClient(st), nil)
	srv := httptest.NewServer(mcp.Handler(mcp.NewServer(mcp.ServerOptions{Dashboard: dash})))
	defer srv.Close()
	endpoint := srv.URL + "/mcp"

	out, err := run(t, "", "mcp", "tools", "--endpoint", endpoint)
	require.NoError(t, err)
	assert.Contains(t, out, mcp.ToolListWorkflows)
	assert.Contains(t, out, mcp.ToolSetActive)

	out, err = run(t, "", "mcp", "call", "--endpoint", endpoint, mcp.ToolConnect, `{"url":"`+url+`","apiKey":"good"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"configured": true`)

	_, err = run(t, "", "mcp", "call", "--endpoint", endpoint, mcp.ToolRunWorkflow, `{"id":`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestConfigErrors(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "status", "-o", "xml")
	assert.ErrorIs(t, err, config.ErrUnknownOutput)

	_, err = run(t, "", "status", "--backend", "etcd")
	assert.ErrorIs(t, err, config.ErrUnknownBackend)

	_, err = run(t, "", "status", "--backend", "postgres")
	assert.ErrorIs(t, err, config.ErrMissingDSN)

	_, err = run(t, "", "db", "purge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
}
