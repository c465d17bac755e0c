// Package mcp loads per-conversation mcpServers configuration
// and runs the workstation's own embedded MCP tool-server, exposing
// in-process tools (workspace/conversation introspection) to the AI
// backend alongside whatever external servers a conversation configures.
package mcp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relaymesh/relaymesh/internal/obs/errs"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
)

// ServerConfig is one entry of a mcpServers.yaml file. It mirrors
// adapter.McpServerConfig's shape so a loaded file can be handed to
// Options.McpServers without further translation.
type ServerConfig struct {
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	URL     string            `yaml:"url,omitempty"`
}

// file is the on-disk shape: a top-level mcpServers map, matching the
// MCP SDK client config convention.
type file struct {
	McpServers map[string]ServerConfig `yaml:"mcpServers"`
}

// LoadFile reads and validates a mcpServers.yaml file, returning it
// already shaped as adapter.McpServerConfig values.
func LoadFile(path string) (map[string]adapter.McpServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation(fmt.Sprintf("read mcp config %q", path), err)
	}
	return Parse(raw)
}

// Parse validates raw YAML bytes against the mcpServers shape.
func Parse(raw []byte) (map[string]adapter.McpServerConfig, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errs.Validation("parse mcp config", err)
	}

	out := make(map[string]adapter.McpServerConfig, len(f.McpServers))
	for name, cfg := range f.McpServers {
		if err := validate(name, cfg); err != nil {
			return nil, err
		}
		out[name] = adapter.McpServerConfig{
			Command: cfg.Command,
			Args:    cfg.Args,
			Env:     cfg.Env,
			URL:     cfg.URL,
		}
	}
	return out, nil
}

// validate requires each entry to name either a subprocess command or
// a remote URL, matching the MCP SDK client config's two transport
// kinds (stdio vs. HTTP/SSE).
func validate(name string, cfg ServerConfig) error {
	if cfg.Command == "" && cfg.URL == "" {
		return errs.Validation(fmt.Sprintf("mcp server %q: needs command or url", name), nil)
	}
	if cfg.Command != "" && cfg.URL != "" {
		return errs.Validation(fmt.Sprintf("mcp server %q: command and url are mutually exclusive", name), nil)
	}
	return nil
}
