// Package llms defines the provider-neutral chat model: messages with text,
// tool-call and tool-response parts, call options, and the Model interface
// each provider implements. Provider selection happens in llmfactory; nothing
// in this package depends on a concrete provider SDK.
package llms
