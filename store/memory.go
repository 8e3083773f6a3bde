package store

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/llms"
)

type memChat struct {
	info     ChatInfo
	messages []llms.Message
}

type inMemory struct {
	mu sync.RWMutex
	// keyed by tenantID, then chatID
	tenants map[string]map[string]*memChat
}

// NewMemoryStore returns a MessageStore holding all conversations in process
// memory. Intended for tests and single-node deployments.
func NewMemoryStore() MessageStoreManager {
	return &inMemory{
		tenants: make(map[string]map[string]*memChat),
	}
}

func (m *inMemory) chat(tenantID, chatID string, create bool) *memChat {
	chats := m.tenants[tenantID]
	if chats == nil {
		if !create {
			return nil
		}
		chats = make(map[string]*memChat)
		m.tenants[tenantID] = chats
	}
	c := chats[chatID]
	if c == nil && create {
		now := time.Now()
		c = &memChat{
			info: ChatInfo{
				TenantID:  tenantID,
				ChatID:    chatID,
				Title:     "New Chat",
				CreatedAt: now,
				UpdatedAt: now,
				Metadata:  make(map[string]any),
			},
		}
		chats[chatID] = c
	}
	return c
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.chat(tenantID, chatID, false)
	if c == nil {
		return nil
	}
	out := make([]llms.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (m *inMemory) Add(ctx context.Context, msg llms.Message) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return errors.New("invalid chat context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.chat(tenantID, chatID, true)
	c.messages = append(c.messages, msg)
	c.info.UpdatedAt = time.Now()
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return errors.New("invalid chat context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if chats := m.tenants[tenantID]; chats != nil {
		delete(chats, chatID)
	}
	return nil
}

func (m *inMemory) UpdateChat(ctx context.Context, title string, metadata map[string]any) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, errors.New("invalid chat context")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.chat(tenantID, chatID, true)
	if title != "" {
		c.info.Title = title
	}
	for k, v := range metadata {
		c.info.Metadata[k] = v
	}
	c.info.UpdatedAt = time.Now()

	info := c.info
	return &info, nil
}

func (m *inMemory) ListChats(ctx context.Context) ([]string, error) {
	tenantID, _, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, errors.New("invalid chat context")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	chats := m.tenants[tenantID]
	ids := make([]string, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *inMemory) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, errors.New("invalid chat context")
	}
	if id == "" {
		id = chatID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.chat(tenantID, id, true)
	info := c.info
	info.Messages = make([]llms.Message, len(c.messages))
	copy(info.Messages, c.messages)
	return &info, nil
}

func (m *inMemory) ListTenants(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tenants))
	for id := range m.tenants {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *inMemory) Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error) {
	cutoff := time.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()
	chats := m.tenants[tenantID]
	deleted := uint32(0)
	for id, c := range chats {
		if c.info.UpdatedAt.Before(cutoff) {
			delete(chats, id)
			deleted++
		}
	}
	return deleted, nil
}
