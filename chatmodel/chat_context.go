package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// DefaultTenantID is used when the caller does not provide a tenant.
const DefaultTenantID = "default"

// ChatContext carries the identity of a conversation: the tenant it belongs
// to, the chat ID, and optional immutable application data.
type ChatContext interface {
	GetTenantID() string
	GetChatID() string
	// AppData returns immutable app data
	AppData() any
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	tenantID string
	chatID   string
	metadata sync.Map
	appData  any
}

func (c *chatContext) GetTenantID() string {
	return c.tenantID
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) AppData() any {
	return c.appData
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewChatContext creates a ChatContext. Empty tenantID falls back to
// DefaultTenantID, empty chatID gets a new generated ID.
func NewChatContext(tenantID, chatID string, appData any) ChatContext {
	return &chatContext{
		tenantID: values.StringsCoalesce(tenantID, DefaultTenantID),
		chatID:   values.StringsCoalesce(chatID, NewChatID()),
		appData:  appData,
		metadata: sync.Map{},
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v.GetChatID()
	}
	return ""
}

// GetTenantAndChatID retrieves the tenant and chat IDs from the provided
// context. Returns an error when the context carries no ChatContext.
func GetTenantAndChatID(ctx context.Context) (tenantID string, chatID string, err error) {
	v, ok := ctx.Value(keyContext).(ChatContext)
	if !ok {
		return "", "", errors.New("chat context is not set")
	}
	return v.GetTenantID(), v.GetChatID(), nil
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
