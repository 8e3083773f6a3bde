package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Anthropic model IDs on Bedrock.
const (
	ModelAnthropicClaudeV35Sonnet = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	ModelAnthropicClaudeV3Sonnet  = "anthropic.claude-3-sonnet-20240229-v1:0"
	ModelAnthropicClaudeV3Haiku   = "anthropic.claude-3-haiku-20240307-v1:0"
)

type options struct {
	modelID    string
	client     *bedrockruntime.Client
	configOpts []func(*config.LoadOptions) error
}

// Option is a functional option for the Bedrock LLM.
type Option func(*options)

// WithModel sets the model ID to use. If not set, a default Anthropic
// Claude model is used.
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithClient sets a pre-configured Bedrock runtime client. When set, the
// default AWS config is not loaded.
func WithClient(client *bedrockruntime.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithRegion sets the AWS region used when loading the default config.
func WithRegion(region string) Option {
	return func(o *options) {
		o.configOpts = append(o.configOpts, config.WithRegion(region))
	}
}

// WithStaticCredentials sets static AWS credentials used when loading the
// default config. Useful for tests and local setups without a profile.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) {
		o.configOpts = append(o.configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken),
		))
	}
}
