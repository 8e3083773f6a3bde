// Package toolmanager aggregates tools, resources, and prompts from one or
// more providers into a single catalog, and is the only path through which
// agents execute tools.
package toolmanager

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/mcpclient"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/mcpagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "toolmanager")

// ErrToolNotFound is returned when a tool name is not in the catalog.
var ErrToolNotFound = errors.New("tool not found")

// DefaultCategory is assigned to tools without a category annotation.
const DefaultCategory = "general"

// Provider is a source of tools, resources, and prompts. It is implemented
// by mcpclient.Client (remote servers) and tools.Registry (in-process).
//
//go:generate mockgen -source=toolmanager.go -destination=../mocks/mocktoolmanager/toolmanager_mock.gen.go -package mocktoolmanager
type Provider interface {
	Name() string
	ListTools(ctx context.Context) ([]mcpclient.ToolDefinition, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcpclient.ToolResult, error)
	ListResources(ctx context.Context) ([]mcpclient.ResourceDefinition, error)
	ListPrompts(ctx context.Context) ([]mcpclient.PromptDefinition, error)
}

// ToolDescriptor is one catalog entry. The category annotation is parsed out
// of the description and not shown to the model.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Server      string         `json:"server"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Catalog is a read-only snapshot of everything the providers expose.
type Catalog struct {
	// Tools are grouped by category; categories and the tools within each
	// are sorted by name.
	Tools map[string][]ToolDescriptor `json:"tools"`

	Resources []mcpclient.ResourceDefinition `json:"resources,omitempty"`
	Prompts   []mcpclient.PromptDefinition   `json:"prompts,omitempty"`
}

// ToolCallRecord is the audited outcome of one tool execution.
type ToolCallRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
	Success    bool           `json:"success"`
	Result     string         `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

type toolEntry struct {
	descriptor ToolDescriptor
	provider   Provider
}

// Manager holds the discovered catalog and routes executions.
type Manager struct {
	providers []Provider

	mu        sync.RWMutex
	tools     map[string]toolEntry
	order     []string
	resources []mcpclient.ResourceDefinition
	prompts   []mcpclient.PromptDefinition
}

// New creates a Manager over the given providers. Call Discover before use.
func New(providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		tools:     make(map[string]toolEntry),
	}
}

// Discover pulls the catalogs of all providers. It replaces any previously
// discovered catalog. Later providers cannot shadow earlier tool names.
func (m *Manager) Discover(ctx context.Context) error {
	tools := make(map[string]toolEntry)
	var order []string
	var resources []mcpclient.ResourceDefinition
	var prompts []mcpclient.PromptDefinition

	for _, p := range m.providers {
		started := time.Now()
		defs, err := p.ListTools(ctx)
		if err != nil {
			return errors.WithMessagef(err, "failed to discover tools from provider %q", p.Name())
		}
		metricskey.PerfToolDiscovery.MeasureSince(started, p.Name())

		for _, def := range defs {
			if _, ok := tools[def.Name]; ok {
				logger.ContextKV(ctx, xlog.WARNING,
					"reason", "duplicate tool",
					"tool", def.Name,
					"provider", p.Name(),
				)
				continue
			}
			category, description := parseCategory(def.Description)
			tools[def.Name] = toolEntry{
				descriptor: ToolDescriptor{
					Name:        def.Name,
					Description: description,
					Category:    category,
					Server:      p.Name(),
					InputSchema: def.InputSchema,
				},
				provider: p,
			}
			order = append(order, def.Name)
		}

		res, err := p.ListResources(ctx)
		if err != nil {
			return errors.WithMessagef(err, "failed to discover resources from provider %q", p.Name())
		}
		resources = append(resources, res...)

		prs, err := p.ListPrompts(ctx)
		if err != nil {
			return errors.WithMessagef(err, "failed to discover prompts from provider %q", p.Name())
		}
		prompts = append(prompts, prs...)

		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "discovered",
			"provider", p.Name(),
			"tools", len(defs),
			"resources", len(res),
			"prompts", len(prs),
		)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	m.order = order
	m.resources = resources
	m.prompts = prompts
	return nil
}

// parseCategory extracts the "[category]" prefix from a tool description.
func parseCategory(description string) (category, rest string) {
	rest = strings.TrimSpace(description)
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end > 1 {
			category = strings.TrimSpace(rest[1:end])
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	if category == "" {
		category = DefaultCategory
	}
	return category, rest
}

// Execute runs a tool by name. Tool failures are recovered into the record;
// only unknown names surface as ErrToolNotFound.
func (m *Manager) Execute(ctx context.Context, name string, args map[string]any) (*ToolCallRecord, error) {
	m.mu.RLock()
	entry, ok := m.tools[name]
	m.mu.RUnlock()

	if !ok {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		return nil, errors.WithMessagef(ErrToolNotFound, "tool %q", name)
	}

	record := &ToolCallRecord{
		ID:   uuid.NewString(),
		Name: name,
		Args: args,
	}

	started := time.Now()
	res, err := entry.provider.CallTool(ctx, name, args)
	record.DurationMS = time.Since(started).Milliseconds()
	metricskey.PerfToolCall.MeasureSince(started, name)

	switch {
	case err != nil:
		record.Error = err.Error()
	case res.IsError:
		record.Error = res.Content
	default:
		record.Success = true
		record.Result = res.Content
	}

	if record.Success {
		metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	} else {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.DEBUG,
			"reason", "tool call failed",
			"tool", name,
			"err", record.Error,
		)
	}
	return record, nil
}

// Describe returns the catalog grouped by category. The returned value is a
// copy; mutating it does not affect the Manager.
func (m *Manager) Describe() *Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grouped := make(map[string][]ToolDescriptor)
	for _, name := range m.order {
		d := m.tools[name].descriptor
		grouped[d.Category] = append(grouped[d.Category], d)
	}
	for _, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}

	c := &Catalog{
		Tools:     grouped,
		Resources: make([]mcpclient.ResourceDefinition, len(m.resources)),
		Prompts:   make([]mcpclient.PromptDefinition, len(m.prompts)),
	}
	copy(c.Resources, m.resources)
	copy(c.Prompts, m.prompts)
	return c
}

// LLMTools returns the discovered tools as function definitions for
// the model, in discovery order.
func (m *Manager) LLMTools() []llms.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]llms.Tool, 0, len(m.order))
	for _, name := range m.order {
		d := m.tools[name].descriptor
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return out
}

// ToolNames returns the known tool names in discovery order.
func (m *Manager) ToolNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
