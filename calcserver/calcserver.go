// Package calcserver provides the example tool catalog: calculator tools, a
// clock, an echo tool, a file writer, server resources, and code-review
// prompt templates. It exists to exercise the agent stack end to end; the
// core packages know nothing about these names.
package calcserver

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/mcpclient"
	"github.com/effective-security/mcpagent/pkg/llmutils"
	"github.com/effective-security/mcpagent/pkg/prompts"
	"github.com/effective-security/mcpagent/tools"
)

// ServerName identifies the in-process catalog.
const ServerName = "calc-server"

// ServerVersion is reported in the initialize handshake and config resource.
const ServerVersion = "1.0.0"

// BinaryOpRequest is the input of the two-operand calculator tools.
type BinaryOpRequest struct {
	A float64 `json:"a" yaml:"a" jsonschema:"title=a,description=The first operand."`
	B float64 `json:"b" yaml:"b" jsonschema:"title=b,description=The second operand."`
}

// PowerRequest is the input of the power tool.
type PowerRequest struct {
	Base     float64 `json:"base" yaml:"base" jsonschema:"title=base,description=The base value."`
	Exponent float64 `json:"exponent" yaml:"exponent" jsonschema:"title=exponent,description=The exponent value."`
}

// NumberResult is the output of the calculator tools.
type NumberResult struct {
	Result float64 `json:"result"`
}

func (r *NumberResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// TimeRequest is the input of the clock tool.
type TimeRequest struct {
	// Timezone is an IANA zone name, local time when empty.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty" jsonschema:"title=timezone,description=Optional IANA timezone name such as UTC or America/New_York."`
}

// TimeResult is the output of the clock tool.
type TimeResult struct {
	Time string `json:"time"`
}

func (r *TimeResult) GetContent() string {
	return r.Time
}

// EchoRequest is the input of the echo tool.
type EchoRequest struct {
	Message string `json:"message" yaml:"message" jsonschema:"title=message,description=The message to echo back."`
}

// EchoResult is the output of the echo tool.
type EchoResult struct {
	Message string `json:"message"`
}

func (r *EchoResult) GetContent() string {
	return r.Message
}

// WriteFileRequest is the input of the file writer tool.
type WriteFileRequest struct {
	FileName string `json:"file_name" yaml:"file_name" jsonschema:"title=file_name,description=The name of the file to write."`
	Content  string `json:"content" yaml:"content" jsonschema:"title=content,description=The content to write into the file."`
}

// WriteFileResult is the output of the file writer tool.
type WriteFileResult struct {
	Path string `json:"path"`
}

func (r *WriteFileResult) GetContent() string {
	return "File written to " + r.Path
}

var (
	codeReviewPrompt = prompts.MustNewPromptTemplate("code_review", `Please review the following {{ .language }} code:

`+"```{{ .language }}\n{{ .code }}\n```"+`

Please provide feedback on:
1. Code quality and readability
2. Potential bugs or issues
3. Performance considerations
4. Best practices and improvements
5. Security considerations (if applicable)

Provide specific, actionable feedback with examples where possible.`, "code")

	explainCodePrompt = prompts.MustNewPromptTemplate("explain_code", `Please explain the following {{ .language }} code in detail:

`+"```{{ .language }}\n{{ .code }}\n```"+`

Please explain:
1. What the code does
2. How it works step by step
3. Any important concepts or patterns used
4. The purpose of each major section
5. Any potential edge cases or limitations

Use clear, simple language suitable for someone learning {{ .language }}.`, "code")
)

// Config tunes the example catalog.
type Config struct {
	// OutputDir confines the write_file tool. Defaults to the working
	// directory.
	OutputDir string
}

// NewRegistry builds the example catalog.
func NewRegistry(cfg Config) (*tools.Registry, error) {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	reg := tools.NewRegistry(ServerName)
	err := reg.Register(
		tools.MustNewTool("add", "[calculator] Add two numbers together.",
			func(ctx context.Context, req *BinaryOpRequest) (*NumberResult, error) {
				return &NumberResult{Result: req.A + req.B}, nil
			}),
		tools.MustNewTool("multiply", "[calculator] Multiply two numbers together.",
			func(ctx context.Context, req *BinaryOpRequest) (*NumberResult, error) {
				return &NumberResult{Result: req.A * req.B}, nil
			}),
		tools.MustNewTool("divide", "[calculator] Divide two numbers (a / b).",
			func(ctx context.Context, req *BinaryOpRequest) (*NumberResult, error) {
				if req.B == 0 {
					return nil, errors.New("cannot divide by zero")
				}
				return &NumberResult{Result: req.A / req.B}, nil
			}),
		tools.MustNewTool("power", "[calculator] Raise base to the power of exponent.",
			func(ctx context.Context, req *PowerRequest) (*NumberResult, error) {
				return &NumberResult{Result: math.Pow(req.Base, req.Exponent)}, nil
			}),
		tools.MustNewTool("get_current_time", "[utility] Get the current date and time.",
			func(ctx context.Context, req *TimeRequest) (*TimeResult, error) {
				now := time.Now()
				if req.Timezone != "" {
					loc, err := time.LoadLocation(req.Timezone)
					if err != nil {
						return nil, errors.Wrapf(err, "unknown timezone %q", req.Timezone)
					}
					now = now.In(loc)
				}
				return &TimeResult{Time: now.Format(time.RFC3339)}, nil
			}),
		tools.MustNewTool("echo", "[utility] Echo back the provided message.",
			func(ctx context.Context, req *EchoRequest) (*EchoResult, error) {
				return &EchoResult{Message: "Echo: " + req.Message}, nil
			}),
		tools.MustNewTool("write_file", "[filesystem] Write content into a file in the output directory.",
			func(ctx context.Context, req *WriteFileRequest) (*WriteFileResult, error) {
				return writeFile(outputDir, req)
			}),
	)
	if err != nil {
		return nil, err
	}

	if err := registerResources(reg); err != nil {
		return nil, err
	}
	if err := registerPrompts(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func writeFile(outputDir string, req *WriteFileRequest) (*WriteFileResult, error) {
	name := filepath.Clean(req.FileName)
	if name == "" || filepath.IsAbs(name) || strings.Contains(name, "..") {
		return nil, errors.Newf("invalid file name %q", req.FileName)
	}
	path := filepath.Join(outputDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(path, []byte(req.Content), 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write file %q", path)
	}
	return &WriteFileResult{Path: path}, nil
}

func registerResources(reg *tools.Registry) error {
	startedAt := time.Now()

	err := reg.RegisterResource(mcpclient.ResourceDefinition{
		URI:         "config://server",
		Name:        "Server Configuration",
		Description: "Get the server configuration.",
		MIMEType:    "application/json",
	}, func(ctx context.Context) (*mcpclient.ResourceContent, error) {
		config := map[string]any{
			"server_name": ServerName,
			"version":     ServerVersion,
			"features":    []string{"calculator", "time", "echo", "filesystem"},
		}
		return jsonResource("config://server", config)
	})
	if err != nil {
		return err
	}

	err = reg.RegisterResource(mcpclient.ResourceDefinition{
		URI:         "status://health",
		Name:        "Server Health",
		Description: "Get the server health status.",
		MIMEType:    "application/json",
	}, func(ctx context.Context) (*mcpclient.ResourceContent, error) {
		status := map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(startedAt).String(),
		}
		return jsonResource("status://health", status)
	})
	if err != nil {
		return err
	}

	return reg.RegisterResource(mcpclient.ResourceDefinition{
		URI:         "info://capabilities",
		Name:        "Server Capabilities",
		Description: "Get detailed information about server capabilities.",
		MIMEType:    "application/json",
	}, func(ctx context.Context) (*mcpclient.ResourceContent, error) {
		info := map[string]any{
			"tools": map[string]any{
				"calculator": []string{"add", "multiply", "divide", "power"},
				"utility":    []string{"get_current_time", "echo"},
				"filesystem": []string{"write_file"},
			},
			"resources": map[string]string{
				"config":       "Server configuration",
				"status":       "Health status",
				"capabilities": "This information",
			},
			"prompts": map[string]string{
				"code_review":  "Template for code review",
				"explain_code": "Template for code explanation",
			},
		}
		return jsonResource("info://capabilities", info)
	})
}

func jsonResource(uri string, val any) (*mcpclient.ResourceContent, error) {
	js, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal resource content")
	}
	return &mcpclient.ResourceContent{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(js),
	}, nil
}

func registerPrompts(reg *tools.Registry) error {
	promptArgs := []mcpclient.PromptArgument{
		{Name: "code", Description: "The code to process.", Required: true},
		{Name: "language", Description: "The programming language, defaults to python."},
	}

	err := reg.RegisterPrompt(mcpclient.PromptDefinition{
		Name:        "code_review",
		Description: "Generate a code review prompt.",
		Arguments:   promptArgs,
	}, promptHandler(codeReviewPrompt))
	if err != nil {
		return err
	}

	return reg.RegisterPrompt(mcpclient.PromptDefinition{
		Name:        "explain_code",
		Description: "Generate a code explanation prompt.",
		Arguments:   promptArgs,
	}, promptHandler(explainCodePrompt))
}

func promptHandler(tmpl *prompts.PromptTemplate) tools.PromptHandler {
	return func(ctx context.Context, args map[string]string) ([]mcpclient.PromptMessage, error) {
		values := map[string]any{
			"language": "python",
		}
		for k, v := range args {
			values[k] = v
		}
		text, err := tmpl.Format(values)
		if err != nil {
			return nil, err
		}
		return []mcpclient.PromptMessage{
			{Role: "user", Content: text},
		}, nil
	}
}
