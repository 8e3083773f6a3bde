// Package tools defines the tool interface for LLM agents and an in-process
// registry that exposes tools, resources, and prompts through the same
// catalog surface as a remote MCP server.
package tools

import (
	"context"

	"github.com/effective-security/mcpagent/pkg/llmutils"
)

// ITool is a tool the agent can invoke.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() any

	// Call executes the tool with the given JSON input and returns the result.
	Call(context.Context, string) (string, error)
}

// Tool is a typed tool with a structured input and output.
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

type toolDescription struct {
	Name        string `json:"Name" yaml:"Name"`
	Description string `json:"Description" yaml:"Description"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions renders the names and descriptions of the tools as a
// fenced JSON block for inclusion in prompts.
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		d.Tools = append(d.Tools, toolDescription{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return llmutils.BackticksJSON(llmutils.ToJSONIndent(d))
}
