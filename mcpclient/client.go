// Package mcpclient connects to MCP servers over stdio or streamable HTTP
// and exposes their tools, resources, and prompts in a provider-neutral form.
package mcpclient

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "mcpclient")

var (
	// ErrConnection marks failures to reach or start a server.
	ErrConnection = errors.New("mcp: connection failed")
	// ErrProtocol marks failures of the MCP exchange itself.
	ErrProtocol = errors.New("mcp: protocol error")
)

const defaultTimeout = 30 * time.Second

// Config describes how to reach one MCP server. Either Command (stdio
// transport) or URL (streamable HTTP transport) must be set.
type Config struct {
	// Name is the unique identifier of this server.
	Name string `json:"name" yaml:"name"`

	// Command is the executable to launch for stdio transport.
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`

	// URL is the endpoint for streamable HTTP transport.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Timeout bounds individual tool calls. Defaults to 30s.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Client is a connection to a single MCP server.
type Client struct {
	name    string
	client  *client.Client
	timeout time.Duration

	serverInfo mcp.Implementation
	caps       mcp.ServerCapabilities
}

// Connect launches or dials the server described by cfg and performs the
// initialize handshake.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}

	var (
		mc  *client.Client
		err error
	)
	switch {
	case cfg.Command != "":
		mc, err = client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
		if err != nil {
			return nil, errors.WithMessagef(errors.Mark(err, ErrConnection),
				"failed to launch server %q", cfg.Name)
		}
	case cfg.URL != "":
		t, terr := transport.NewStreamableHTTP(cfg.URL)
		if terr != nil {
			return nil, errors.WithMessagef(errors.Mark(terr, ErrConnection),
				"failed to create transport for server %q", cfg.Name)
		}
		mc = client.NewClient(t)
	default:
		return nil, errors.Newf("server %q: either command or url is required", cfg.Name)
	}

	if err = mc.Start(ctx); err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrConnection),
			"failed to start client for server %q", cfg.Name)
	}

	c := &Client{
		name:    cfg.Name,
		client:  mc,
		timeout: cfg.Timeout,
	}
	if c.timeout == 0 {
		c.timeout = defaultTimeout
	}

	if err = c.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "connected",
		"server", c.name,
		"server_name", c.serverInfo.Name,
		"server_version", c.serverInfo.Version,
	)
	return c, nil
}

func (c *Client) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "mcpagent",
				Version: "1.0.0",
			},
		},
	}

	res, err := c.client.Initialize(ctx, req)
	if err != nil {
		return errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"initialize failed for server %q", c.name)
	}

	c.serverInfo = res.ServerInfo
	c.caps = c.client.GetServerCapabilities()
	return nil
}

// Name returns the configured server identifier.
func (c *Client) Name() string {
	return c.name
}

// ServerInfo returns the name and version the server reported.
func (c *Client) ServerInfo() mcp.Implementation {
	return c.serverInfo
}

// ListTools retrieves the tool catalog of the server.
func (c *Client) ListTools(ctx context.Context) ([]ToolDefinition, error) {
	res, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"failed to list tools on server %q", c.name)
	}

	tools := make([]ToolDefinition, len(res.Tools))
	for i, tool := range res.Tools {
		schema, err := toolSchema(tool)
		if err != nil {
			return nil, errors.WithMessagef(err, "tool %q on server %q", tool.Name, c.name)
		}
		tools[i] = ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		}
	}
	return tools, nil
}

func toolSchema(tool mcp.Tool) (map[string]any, error) {
	var raw []byte
	if len(tool.RawInputSchema) > 0 {
		raw = tool.RawInputSchema
	} else {
		var err error
		raw, err = json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal input schema")
		}
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal input schema")
	}
	return schema, nil
}

// CallTool executes a tool with the given arguments. A failure the server
// reports in-band comes back as ToolResult.IsError, not a Go error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"failed to call tool %q on server %q", name, c.name)
	}

	return &ToolResult{
		Content: renderContent(res.Content),
		IsError: res.IsError,
	}, nil
}

func renderContent(items []mcp.Content) string {
	var sb strings.Builder
	for _, item := range items {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		if tc, ok := mcp.AsTextContent(item); ok {
			sb.WriteString(tc.Text)
			continue
		}
		if ic, ok := mcp.AsImageContent(item); ok {
			sb.WriteString("[image: " + ic.MIMEType + "]")
			continue
		}
		// Unknown content type, keep the raw JSON
		js, _ := json.Marshal(item)
		sb.Write(js)
	}
	return sb.String()
}

// ListResources retrieves the resource catalog of the server. Servers
// without the resources capability yield an empty list.
func (c *Client) ListResources(ctx context.Context) ([]ResourceDefinition, error) {
	if c.caps.Resources == nil {
		return nil, nil
	}

	res, err := c.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"failed to list resources on server %q", c.name)
	}

	resources := make([]ResourceDefinition, len(res.Resources))
	for i, r := range res.Resources {
		resources[i] = ResourceDefinition{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		}
	}
	return resources, nil
}

// ReadResource reads a resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	if c.caps.Resources == nil {
		return nil, errors.Newf("server %q does not support resources", c.name)
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	res, err := c.client.ReadResource(ctx, req)
	if err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"failed to read resource %q on server %q", uri, c.name)
	}

	contents := make([]ResourceContent, len(res.Contents))
	for i, item := range res.Contents {
		if tc, ok := mcp.AsTextResourceContents(item); ok {
			contents[i] = ResourceContent{
				URI:      tc.URI,
				MIMEType: tc.MIMEType,
				Text:     tc.Text,
			}
			continue
		}
		if bc, ok := mcp.AsBlobResourceContents(item); ok {
			contents[i] = ResourceContent{
				URI:      bc.URI,
				MIMEType: bc.MIMEType,
				Blob:     bc.Blob,
			}
		}
	}
	return contents, nil
}

// ListPrompts retrieves the prompt catalog of the server. Servers without
// the prompts capability yield an empty list.
func (c *Client) ListPrompts(ctx context.Context) ([]PromptDefinition, error) {
	if c.caps.Prompts == nil {
		return nil, nil
	}

	res, err := c.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"failed to list prompts on server %q", c.name)
	}

	prompts := make([]PromptDefinition, len(res.Prompts))
	for i, p := range res.Prompts {
		def := PromptDefinition{
			Name:        p.Name,
			Description: p.Description,
		}
		for _, arg := range p.Arguments {
			def.Arguments = append(def.Arguments, PromptArgument{
				Name:        arg.Name,
				Description: arg.Description,
				Required:    arg.Required,
			})
		}
		prompts[i] = def
	}
	return prompts, nil
}

// GetPrompt renders a prompt template with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) ([]PromptMessage, error) {
	if c.caps.Prompts == nil {
		return nil, errors.Newf("server %q does not support prompts", c.name)
	}

	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.client.GetPrompt(ctx, req)
	if err != nil {
		return nil, errors.WithMessagef(errors.Mark(err, ErrProtocol),
			"failed to get prompt %q on server %q", name, c.name)
	}

	messages := make([]PromptMessage, len(res.Messages))
	for i, m := range res.Messages {
		msg := PromptMessage{Role: string(m.Role)}
		if tc, ok := mcp.AsTextContent(m.Content); ok {
			msg.Content = tc.Text
		}
		messages[i] = msg
	}
	return messages, nil
}

// Ping checks that the server is still responsive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		return errors.WithMessagef(errors.Mark(err, ErrConnection),
			"server %q is not responding", c.name)
	}
	return nil
}

// Close shuts down the connection and, for stdio transport, the server
// process.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return errors.WithMessagef(err, "failed to close client for server %q", c.name)
	}
	return nil
}
