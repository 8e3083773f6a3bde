package tools

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/mcpclient"
	"github.com/effective-security/mcpagent/pkg/llmutils"
)

// ResourceHandler returns the content of a resource.
type ResourceHandler func(ctx context.Context) (*mcpclient.ResourceContent, error)

// PromptHandler renders a prompt template with the given arguments.
type PromptHandler func(ctx context.Context, args map[string]string) ([]mcpclient.PromptMessage, error)

type registeredResource struct {
	def     mcpclient.ResourceDefinition
	handler ResourceHandler
}

type registeredPrompt struct {
	def     mcpclient.PromptDefinition
	handler PromptHandler
}

// Registry is an in-process tool catalog. It offers the same surface as a
// remote MCP server connection, so agents can mix local and remote tools.
// Tools must be registered explicitly; there is no discovery magic.
type Registry struct {
	name string

	mu            sync.RWMutex
	order         []string
	tools         map[string]ITool
	resourceOrder []string
	resources     map[string]registeredResource
	promptOrder   []string
	prompts       map[string]registeredPrompt
}

// NewRegistry creates an empty registry with the given server name.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:      name,
		tools:     make(map[string]ITool),
		resources: make(map[string]registeredResource),
		prompts:   make(map[string]registeredPrompt),
	}
}

// Name returns the registry's server name.
func (r *Registry) Name() string {
	return r.name
}

// Register adds a tool to the registry. Duplicate names are rejected.
func (r *Registry) Register(tools ...ITool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		name := t.Name()
		if _, ok := r.tools[name]; ok {
			return errors.Newf("tool %q is already registered", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// RegisterResource adds a resource with its read handler.
func (r *Registry) RegisterResource(def mcpclient.ResourceDefinition, handler ResourceHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[def.URI]; ok {
		return errors.Newf("resource %q is already registered", def.URI)
	}
	r.resources[def.URI] = registeredResource{def: def, handler: handler}
	r.resourceOrder = append(r.resourceOrder, def.URI)
	return nil
}

// RegisterPrompt adds a prompt template with its render handler.
func (r *Registry) RegisterPrompt(def mcpclient.PromptDefinition, handler PromptHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[def.Name]; ok {
		return errors.Newf("prompt %q is already registered", def.Name)
	}
	r.prompts[def.Name] = registeredPrompt{def: def, handler: handler}
	r.promptOrder = append(r.promptOrder, def.Name)
	return nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ITool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ListTools returns the catalog in registration order.
func (r *Registry) ListTools(ctx context.Context) ([]mcpclient.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcpclient.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		schema, err := llmutils.SchemaToMap(t.Parameters())
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid schema for tool %q", name)
		}
		defs = append(defs, mcpclient.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		})
	}
	return defs, nil
}

// CallTool executes a registered tool. In-band tool failures are reported
// through ToolResult.IsError, matching remote server behavior.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (*mcpclient.ToolResult, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("tool %q is not registered", name)
	}

	input, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal arguments for tool %q", name)
	}

	out, err := t.Call(ctx, string(input))
	if err != nil {
		return &mcpclient.ToolResult{
			Content: err.Error(),
			IsError: true,
		}, nil
	}
	return &mcpclient.ToolResult{Content: out}, nil
}

// ListResources returns the resource definitions in registration order.
func (r *Registry) ListResources(ctx context.Context) ([]mcpclient.ResourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcpclient.ResourceDefinition, 0, len(r.resourceOrder))
	for _, uri := range r.resourceOrder {
		defs = append(defs, r.resources[uri].def)
	}
	return defs, nil
}

// ReadResource reads a registered resource by URI.
func (r *Registry) ReadResource(ctx context.Context, uri string) ([]mcpclient.ResourceContent, error) {
	r.mu.RLock()
	res, ok := r.resources[uri]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("resource %q is not registered", uri)
	}
	content, err := res.handler(ctx)
	if err != nil {
		return nil, err
	}
	return []mcpclient.ResourceContent{*content}, nil
}

// ListPrompts returns the prompt definitions in registration order.
func (r *Registry) ListPrompts(ctx context.Context) ([]mcpclient.PromptDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]mcpclient.PromptDefinition, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		defs = append(defs, r.prompts[name].def)
	}
	return defs, nil
}

// GetPrompt renders a registered prompt template.
func (r *Registry) GetPrompt(ctx context.Context, name string, args map[string]string) ([]mcpclient.PromptMessage, error) {
	r.mu.RLock()
	p, ok := r.prompts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("prompt %q is not registered", name)
	}
	return p.handler(ctx, args)
}
