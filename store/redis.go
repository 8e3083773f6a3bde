package store

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpagent/chatmodel"
	"github.com/effective-security/mcpagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// historyLimit caps the number of persisted messages per chat.
const historyLimit = 50

// The redis store implements the MessageStore interface using Redis as the
// backend. The keys namespace is organized as follows:
// - `/<prefix>/chatstore/<tenantID>/messages/<chatID>` for chat messages
// - `/<prefix>/chatstore/<tenantID>/info/<chatID>` for chat metadata
// - `/<prefix>/chatstore/<tenantID>/chats` for the set of chat IDs of a tenant

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed MessageStore. The prefix namespaces
// all keys so multiple deployments can share one Redis instance.
func NewRedisStore(client *redis.Client, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

// NewRedisStoreManager creates a Redis-backed MessageStoreManager.
func NewRedisStoreManager(client *redis.Client, prefix string) MessageStoreManager {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(tenantID, chatID string) string {
	return path.Join(m.prefix, "chatstore", tenantID, "messages", chatID)
}

func (m *redisStore) chatInfoKey(tenantID, chatID string) string {
	return path.Join(m.prefix, "chatstore", tenantID, "info", chatID)
}

func (m *redisStore) chatListKey(tenantID string) string {
	return path.Join(m.prefix, "chatstore", tenantID, "chats")
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "GetTenantAndChatID", "err", err.Error())
		return nil
	}

	key := m.messagesKey(tenantID, chatID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "key", key, "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msg llms.Message) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	key := m.messagesKey(tenantID, chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -historyLimit, -1)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}

	// Bump the chat update time
	_, err = m.UpdateChat(ctx, "", nil)
	return err
}

func (m *redisStore) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.messagesKey(tenantID, chatID))
	pipe.Del(ctx, m.chatInfoKey(tenantID, chatID))
	pipe.SRem(ctx, m.chatListKey(tenantID), chatID)
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

func (m *redisStore) UpdateChat(ctx context.Context, title string, metadata map[string]any) (*ChatInfo, error) {
	_, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	chat, err := m.getChatInfo(ctx, chatID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get chat info")
	}

	if title != "" {
		chat.Title = title
	}
	if metadata != nil {
		if chat.Metadata == nil {
			chat.Metadata = make(map[string]any)
		}
		for k, v := range metadata {
			chat.Metadata[k] = v
		}
	}
	chat.UpdatedAt = time.Now()

	if err := m.putChat(ctx, chat, false); err != nil {
		return nil, err
	}
	return chat, nil
}

func (m *redisStore) putChat(ctx context.Context, chat *ChatInfo, isNew bool) error {
	chatData, err := json.Marshal(chat)
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	pipe := m.client.Pipeline()
	pipe.Set(ctx, m.chatInfoKey(chat.TenantID, chat.ChatID), chatData, 0)
	if isNew {
		pipe.SAdd(ctx, m.chatListKey(chat.TenantID), chat.ChatID)
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to store chat info in Redis")
	}
	return nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	tenantID, _, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	chatIDs, err := m.client.SMembers(ctx, m.chatListKey(tenantID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	return chatIDs, nil
}

func (m *redisStore) GetChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	info, err := m.getChatInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	info.Messages = m.Messages(ctx)
	return info, nil
}

// returns the chat information without messages, creating the record
// if it does not exist yet
func (m *redisStore) getChatInfo(ctx context.Context, id string) (*ChatInfo, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = chatID
	}

	var chat *ChatInfo
	data, err := m.client.Get(ctx, m.chatInfoKey(tenantID, id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, errors.Wrap(err, "failed to get chat info from Redis")
		}
		now := time.Now()
		chat = &ChatInfo{
			TenantID:  tenantID,
			ChatID:    id,
			Title:     "New Chat",
			CreatedAt: now,
			UpdatedAt: now,
			Metadata:  make(map[string]any),
		}
		if err = m.putChat(ctx, chat, true); err != nil {
			return nil, errors.WithMessage(err, "failed to initialize new chat info")
		}
	} else {
		chat = &ChatInfo{}
		if err = json.Unmarshal([]byte(data), chat); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal chat info")
		}
	}
	return chat, nil
}

func (m *redisStore) ListTenants(ctx context.Context) ([]string, error) {
	root := path.Join(m.prefix, "chatstore")
	// SCAN instead of KEYS to avoid blocking Redis
	iter := m.client.Scan(ctx, 0, root+"/*", 0).Iterator()
	tenants := make(map[string]struct{})

	for iter.Next(ctx) {
		key := iter.Val()
		parts := strings.Split(strings.TrimPrefix(key, root+"/"), "/")
		if len(parts) > 0 {
			tenants[parts[0]] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan tenants from Redis")
	}

	result := make([]string, 0, len(tenants))
	for tenant := range tenants {
		result = append(result, tenant)
	}
	return result, nil
}

func (m *redisStore) Cleanup(ctx context.Context, tenantID string, olderThan time.Duration) (uint32, error) {
	chatListKey := m.chatListKey(tenantID)
	chatIDs, err := m.client.SMembers(ctx, chatListKey).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to list chats from Redis")
	}

	deleted := uint32(0)
	cutoff := time.Now().Add(-olderThan)
	for _, chatID := range chatIDs {
		chatKey := m.chatInfoKey(tenantID, chatID)
		data, err := m.client.Get(ctx, chatKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return 0, errors.Wrap(err, "failed to get chat info")
		}

		var chat ChatInfo
		if err := json.Unmarshal([]byte(data), &chat); err != nil {
			return 0, errors.Wrap(err, "failed to unmarshal chat info")
		}

		if chat.UpdatedAt.Before(cutoff) {
			pipe := m.client.Pipeline()
			pipe.Del(ctx, chatKey)
			pipe.Del(ctx, m.messagesKey(tenantID, chatID))
			pipe.SRem(ctx, chatListKey, chatID)
			if _, err = pipe.Exec(ctx); err != nil {
				return 0, errors.Wrap(err, "failed to delete chat from Redis")
			}
			deleted++
		}
	}
	return deleted, nil
}
