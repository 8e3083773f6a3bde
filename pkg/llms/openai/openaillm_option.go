package openai

import (
	"os"

	"github.com/effective-security/mcpagent/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/x/values"
)

const (
	tokenEnvVarName        = "OPENAI_API_KEY"      //nolint:gosec
	modelEnvVarName        = "OPENAI_MODEL"        //nolint:gosec
	baseURLEnvVarName      = "OPENAI_BASE_URL"     //nolint:gosec
	baseAPIBaseEnvVarName  = "OPENAI_API_BASE"     //nolint:gosec
	organizationEnvVarName = "OPENAI_ORGANIZATION" //nolint:gosec
)

// ProviderType selects the API flavor the client talks to.
type ProviderType = openaiclient.ProviderType

const (
	ProviderOpenAI     = openaiclient.ProviderOpenAI
	ProviderAzure      = openaiclient.ProviderAzure
	ProviderAzureAD    = openaiclient.ProviderAzureAD
	ProviderPerplexity = openaiclient.ProviderPerplexity
)

// DefaultAPIVersion is the Azure OpenAI API version used when not configured.
const DefaultAPIVersion = "2023-05-15"

type options struct {
	token        string
	model        string
	baseURL      string
	organization string
	provider     ProviderType
	apiVersion   string
	httpClient   openaiclient.Doer
}

// Option is a functional option for the OpenAI client.
type Option func(*options)

// WithToken passes the OpenAI API token to the client. If not set, the token
// is read from the OPENAI_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *options) {
		opts.token = token
	}
}

// WithModel passes the OpenAI model to the client. If not set, the model
// is read from the OPENAI_MODEL environment variable.
// Required when the provider is Azure.
func WithModel(model string) Option {
	return func(opts *options) {
		opts.model = model
	}
}

// WithBaseURL passes the OpenAI base url to the client. If not set, the base
// url is read from the OPENAI_BASE_URL environment variable. If still not set,
// the default value https://api.openai.com/v1 is used.
func WithBaseURL(baseURL string) Option {
	return func(opts *options) {
		opts.baseURL = baseURL
	}
}

// WithOrganization passes the OpenAI organization to the client. If not set,
// the organization is read from OPENAI_ORGANIZATION.
func WithOrganization(organization string) Option {
	return func(opts *options) {
		opts.organization = organization
	}
}

// WithProvider passes the provider type to the client. If not set, the default
// value is ProviderOpenAI.
func WithProvider(provider ProviderType) Option {
	return func(opts *options) {
		opts.provider = provider
	}
}

// WithAPIVersion passes the api version to the client. If not set, the default
// value is DefaultAPIVersion.
func WithAPIVersion(apiVersion string) Option {
	return func(opts *options) {
		opts.apiVersion = apiVersion
	}
}

// WithHTTPClient allows setting a custom HTTP client. If not set, the default
// value is http.DefaultClient.
func WithHTTPClient(client openaiclient.Doer) Option {
	return func(opts *options) {
		opts.httpClient = client
	}
}

func newClient(opts ...Option) (*options, *openaiclient.Client, error) {
	o := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      values.StringsCoalesce(os.Getenv(baseURLEnvVarName), os.Getenv(baseAPIBaseEnvVarName)),
		organization: os.Getenv(organizationEnvVarName),
		provider:     ProviderOpenAI,
		apiVersion:   DefaultAPIVersion,
	}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.token) == 0 {
		return o, nil, ErrMissingToken
	}

	c, err := openaiclient.New(o.provider, o.model, o.token, o.baseURL, o.organization, o.apiVersion, o.httpClient)
	return o, c, err
}
