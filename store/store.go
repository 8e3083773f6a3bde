// Package store provides conversation history persistence keyed by the
// tenant and chat IDs carried in the request context.
package store

import (
	"context"
	"time"

	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpagent", "store")

// ChatInfo describes a persisted conversation.
type ChatInfo struct {
	TenantID  string         `json:"tenant_id"`
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Messages  []llms.Message `json:"messages,omitempty"`
}

// MessageStore persists the messages of a single conversation. The tenant
// and chat identity comes from the chatmodel context.
type MessageStore interface {
	Messages(ctx context.Context) []llms.Message
	Add(ctx context.Context, msg llms.Message) error
	Reset(ctx context.Context) error

	// UpdateChat creates or updates the chat title and metadata.
	UpdateChat(ctx context.Context, title string, metadata map[string]any) (*ChatInfo, error)
	ListChats(ctx context.Context) ([]string, error)
	// GetChatInfo returns the chat information with messages.
	// Empty id means the chat ID from the context.
	GetChatInfo(ctx context.Context, id string) (*ChatInfo, error)
}

// MessageStoreManager extends MessageStore with cross-tenant maintenance.
type MessageStoreManager interface {
	MessageStore

	ListTenants(ctx context.Context) ([]string, error)
	// Cleanup removes chats not updated within olderThan,
	// returning the number of deleted chats.
	Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error)
}
