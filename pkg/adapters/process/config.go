package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool is the command allow-listed for one workflow.
type Tool struct {
	Workflow    string            `yaml:"workflow" json:"workflow"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ToolsFile is the structure of tools.yaml.
type ToolsFile struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// LoadTools reads a tools file (YAML, or JSON by extension) keyed by workflow.
// A missing file means no tools are configured.
func LoadTools(path string) (map[string]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Tool{}, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var file ToolsFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tools := make(map[string]Tool, len(file.Tools))
	for i, tool := range file.Tools {
		if tool.Workflow == "" || tool.Command == "" {
			return nil, fmt.Errorf("%s: tools[%d] needs both workflow and command", path, i)
		}
		tools[tool.Workflow] = tool
	}
	return tools, nil
}
