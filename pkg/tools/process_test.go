package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/registry"
)

func shellTool(name, script string) ProcessConfig {
	if runtime.GOOS == "windows" {
		return ProcessConfig{Name: name, Command: "cmd", Args: []string{"/c", script}}
	}
	return ProcessConfig{Name: name, Command: "sh", Args: []string{"-c", script}}
}

func TestProcessTool_Execute(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(Process(ProcessConfig{
		Name:    "check_version",
		Command: "go",
		Args:    []string{"version"},
	})))

	t.Run("Executes Registered Command", func(t *testing.T) {
		result, err := reg.Invoke(context.Background(), "check_version", map[string]any{})
		require.NoError(t, err)
		assert.Contains(t, result.(string), "go version")
	})

	t.Run("Unregistered Command Stays Unknown", func(t *testing.T) {
		_, err := reg.Invoke(context.Background(), "hacker_script", map[string]any{})
		assert.Error(t, err)
	})
}

func TestProcessTool_PassesArgumentsViaEnv(t *testing.T) {
	var cfg ProcessConfig
	if runtime.GOOS == "windows" {
		cfg = shellTool("echo_env", "echo %ARBOR_ARG_MSG%")
	} else {
		cfg = shellTool("echo_env", "echo $ARBOR_ARG_MSG")
	}

	reg := registry.New()
	require.NoError(t, reg.Register(Process(cfg)))

	result, err := reg.Invoke(context.Background(), "echo_env", map[string]any{
		"msg": "SecretMessage",
	})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "SecretMessage")
}

func TestProcessTool_JSONOutputIsStructured(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("quoting JSON through cmd.exe is not worth the trouble")
	}

	reg := registry.New()
	require.NoError(t, reg.Register(Process(shellTool("emit_json", `echo '{"ok": true, "count": 2}'`))))

	result, err := reg.Invoke(context.Background(), "emit_json", map[string]any{})
	require.NoError(t, err)

	parsed, ok := result.(map[string]any)
	require.True(t, ok, "expected structured result, got %T", result)
	assert.Equal(t, true, parsed["ok"])
	assert.EqualValues(t, 2, parsed["count"])
}

func TestProcessTool_FailureSurfacesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stderr redirection differs under cmd.exe")
	}

	reg := registry.New()
	require.NoError(t, reg.Register(Process(shellTool("explode", "echo boom >&2; exit 3"))))

	_, err := reg.Invoke(context.Background(), "explode", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestProcessTool_TimeoutKillsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sleep is not a cmd.exe builtin")
	}

	cfg := shellTool("slowpoke", "sleep 5")
	cfg.Timeout = "50ms"

	reg := registry.New()
	require.NoError(t, reg.Register(Process(cfg)))

	_, err := reg.Invoke(context.Background(), "slowpoke", map[string]any{})
	assert.Error(t, err)
}

func TestLoadProcessConfigs(t *testing.T) {
	t.Run("Missing File Means No Tools", func(t *testing.T) {
		configs, err := LoadProcessConfigs(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, configs)
	})

	t.Run("Reads YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tools.yaml")
		content := `tools:
  - name: deploy
    command: ./scripts/deploy.sh
    args: ["--env", "staging"]
    description: Deploys the staging stack
    timeout: 30s
  - name: ""
    command: ignored
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		configs, err := LoadProcessConfigs(path)
		require.NoError(t, err)
		require.Len(t, configs, 1, "entries without a name are skipped")
		assert.Equal(t, "deploy", configs[0].Name)
		assert.Equal(t, "./scripts/deploy.sh", configs[0].Command)
		assert.Equal(t, []string{"--env", "staging"}, configs[0].Args)
		assert.Equal(t, "30s", configs[0].Timeout)
	})

	t.Run("Reads JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tools.json")
		content := `{"tools": [{"name": "list", "command": "ls", "args": ["-la"]}]}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		configs, err := LoadProcessConfigs(path)
		require.NoError(t, err)
		require.Len(t, configs, 1)
		assert.Equal(t, "list", configs[0].Name)
	})
}

func TestRegisterProcessTools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	content := `tools:
  - name: greet
    command: echo
    args: ["hello"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg := registry.New()
	require.NoError(t, RegisterProcessTools(reg, path))
	assert.Contains(t, reg.Names(), "greet")
}
