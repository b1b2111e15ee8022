package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/pkg/registry"
)

// ProcessConfig describes one external command exposed as a tool. Only
// commands registered this way can ever be executed; graphs cannot name
// arbitrary binaries.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	Dir         string            `yaml:"dir" json:"dir"`
	// Timeout bounds one invocation, e.g. "30s". Empty means the caller's
	// context deadline applies alone.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// processConfigFile represents the structure of tools.yaml.
type processConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadProcessConfigs reads a tool configuration file (YAML or JSON) and
// returns the declared commands in file order. A missing file means no
// tools configured, not an error.
func LoadProcessConfigs(path string) ([]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg processConfigFile
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools config: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse tools config: %w", err)
		}
	}

	tools := make([]ProcessConfig, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// RegisterProcessTools loads a tool configuration file and registers every
// declared command with reg.
func RegisterProcessTools(reg *registry.Registry, path string) error {
	configs, err := LoadProcessConfigs(path)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := reg.Register(Process(cfg)); err != nil {
			return err
		}
	}
	return nil
}

// Process builds a tool that executes an allow-listed local command.
// Params are handed to the process as ARBOR_ARG_* environment variables
// rather than argv, which prevents flag injection from untrusted graphs.
// Stdout is the result; output that parses as JSON is returned structured.
func Process(cfg ProcessConfig) registry.Tool {
	schema := openapi3.NewObjectSchema()
	schema.Description = "Free-form params, exposed to the process as ARBOR_ARG_* environment variables."

	return registry.Tool{
		Name:        cfg.Name,
		Description: cfg.Description,
		Params:      schema,
		Handler: func(ctx context.Context, params map[string]any) (any, error) {
			return runProcess(ctx, cfg, params)
		},
	}
}

func runProcess(ctx context.Context, cfg ProcessConfig, params map[string]any) (any, error) {
	if cfg.Timeout != "" {
		timeout, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir

	env := cmd.Environ()
	for k, v := range cfg.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	for k, v := range params {
		env = append(env, fmt.Sprintf("%s=%s", envKey(k), envValue(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("execution failed: %v. Stderr: %s", err, stderr.String())
	}

	trimmed := strings.TrimSpace(stdout.String())

	// Try to parse as JSON (Auto-Detection)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var jsonResult any
		if jsonErr := json.Unmarshal([]byte(trimmed), &jsonResult); jsonErr == nil {
			return jsonResult, nil
		}
	}

	// Fallback to string
	return trimmed, nil
}

// envKey maps a param name onto a safe ARBOR_ARG_* variable name.
func envKey(k string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, k)
	return "ARBOR_ARG_" + strings.ToUpper(mapped)
}

func envValue(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		// Complex types: try JSON
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
